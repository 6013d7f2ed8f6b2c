package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for info.
func EncodeTXT(info *ServiceInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyName:    info.DeviceName,
		TXTKeyVersion: TXTVersion,
	}
	if info.HasLevel {
		txt[TXTKeyLevel] = strconv.Itoa(int(info.Level))
	}
	return txt
}

// DecodeTXT parses TXT records into a Service. Address fields are left
// empty.
func DecodeTXT(txt TXTRecordMap) (*Service, error) {
	name, ok := txt[TXTKeyName]
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyName)
	}
	svc := &Service{
		DeviceName: name,
		Version:    txt[TXTKeyVersion],
	}

	if lvl, ok := txt[TXTKeyLevel]; ok {
		v, err := strconv.ParseUint(lvl, 10, 8)
		if err != nil || v > MaxLevel {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, lvl)
		}
		svc.Level = uint8(v)
		svc.HasLevel = true
	}
	return svc, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings,
// sorted by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// InstanceName turns a device name into a valid mDNS instance name:
// control characters are dropped and the result is cut to the DNS label
// limit.
func InstanceName(deviceName string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(deviceName) {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name := b.String()
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	if name == "" {
		return "", ErrInvalidInstanceName
	}
	return name, nil
}
