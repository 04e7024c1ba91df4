package dmfs

import (
	"fmt"
	"strings"
)

// ObjectType identifies what an object is for. Codes are stored in the image;
// keep them stable forever and only ever add new values.
type ObjectType uint32

const (
	// EndOfList terminates the object stream. It is never a real object.
	EndOfList ObjectType = iota
	// BootMsg is text written to the hypervisor's debug channel at startup.
	BootMsg
	// SystemService is an executable guest that must run at startup.
	SystemService
	// GuestOS is an executable guest OS loaded later.
	GuestOS
	// Unknown stands in for any code this package does not recognise.
	Unknown
)

var objectTypeNames = [...]string{
	EndOfList:     "end_of_list",
	BootMsg:       "boot_msg",
	SystemService: "system_service",
	GuestOS:       "guest_os",
	Unknown:       "unknown",
}

// Code returns the on-disk integer for t.
func (t ObjectType) Code() uint32 {
	return uint32(t)
}

// ObjectTypeFromCode maps an on-disk integer to its type. Codes outside the known
// set decode as Unknown so newer images stay readable.
func ObjectTypeFromCode(code uint32) ObjectType {
	switch ObjectType(code) {
	case EndOfList, BootMsg, SystemService, GuestOS:
		return ObjectType(code)
	default:
		return Unknown
	}
}

func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// ParseObjectType is the inverse of String. It accepts the names case-insensitively
// and also allows '-' in place of '_'.
func ParseObjectType(s string) (ObjectType, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range objectTypeNames {
		if name == key {
			return ObjectType(i), nil
		}
	}
	return Unknown, fmt.Errorf("dmfs: unknown object type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ObjectType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ObjectType) UnmarshalText(text []byte) error {
	v, err := ParseObjectType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
