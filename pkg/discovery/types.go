package discovery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of a tag bridge.
	ServiceType = "_tagbridge._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyVersion   = "ver"
	TXTKeyNamespace = "ns"
	TXTKeyFolders   = "folder"
	TXTKeyTags      = "tags"
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotAdvertising      = errors.New("not advertising")
)

// BridgeInfo is what a bridge advertises about itself.
type BridgeInfo struct {
	Instance  string
	Port      uint16
	Version   string
	Namespace uint16
	Folders   []string
	Tags      int
}

// Validate checks the required fields.
func (i *BridgeInfo) Validate() error {
	if i.Instance == "" {
		return fmt.Errorf("%w: instance", ErrMissingRequired)
	}
	if i.Port == 0 {
		return fmt.Errorf("%w: port", ErrMissingRequired)
	}
	return ValidateInstanceName(i.Instance)
}

// BridgeService is a bridge found on the network.
type BridgeService struct {
	BridgeInfo
	Host      string
	Addresses []string
}

// URL returns the HTTP base URL of the first address.
func (s *BridgeService) URL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	return fmt.Sprintf("http://%s:%d", strings.TrimSuffix(host, "."), s.Port)
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: instance", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// InstanceName shortens name to the DNS label limit.
func InstanceName(name string) string {
	if len(name) > MaxInstanceNameLen {
		return name[:MaxInstanceNameLen]
	}
	return name
}
