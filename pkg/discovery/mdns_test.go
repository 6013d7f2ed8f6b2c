package discovery

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func newEntry(instance string, text []string, v4 ...string) *zeroconf.ServiceEntry {
	entry := &zeroconf.ServiceEntry{}
	entry.Instance = instance
	entry.HostName = instance + ".local."
	entry.Port = DefaultPort
	entry.Text = text
	for _, a := range v4 {
		entry.AddrIPv4 = append(entry.AddrIPv4, net.ParseIP(a))
	}
	return entry
}

func TestEntryToService(t *testing.T) {
	entry := newEntry("rover", []string{"name=rover", "lvl=55", "ver=1"}, "10.0.0.7")
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::7")}

	svc := entryToService(entry)
	if svc == nil {
		t.Fatal("entry was dropped")
	}
	if svc.InstanceName != "rover" || svc.Port != DefaultPort || svc.Level != 55 {
		t.Errorf("unexpected service: %+v", svc)
	}
	if want := []string{"10.0.0.7", "fe80::7"}; !reflect.DeepEqual(svc.Addresses, want) {
		t.Errorf("Addresses = %v, want %v", svc.Addresses, want)
	}

	if entryToService(newEntry("junk", []string{"lvl=1"})) != nil {
		t.Error("entry without name should be dropped")
	}
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.7"}, []string{"10.0.0.7", "10.0.1.7"})
	if want := []string{"10.0.0.7", "10.0.1.7"}; !reflect.DeepEqual(addrs, want) {
		t.Fatalf("merge = %v, want %v", addrs, want)
	}

	addrs = removeAddresses(addrs, newEntry("rover", nil, "10.0.0.7"))
	if want := []string{"10.0.1.7"}; !reflect.DeepEqual(addrs, want) {
		t.Errorf("remove = %v, want %v", addrs, want)
	}
}

func TestMDNSAdvertiserNotAdvertising(t *testing.T) {
	adv, err := NewMDNSAdvertiser(AdvertiserConfig{})
	if err != nil {
		t.Fatalf("NewMDNSAdvertiser: %v", err)
	}

	if err := adv.UpdateLevel(50); !errors.Is(err, ErrNotAdvertising) {
		t.Errorf("UpdateLevel before Advertise: got %v", err)
	}
	if err := adv.UpdateLevel(101); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("UpdateLevel(101): got %v", err)
	}
	if err := adv.Advertise(context.Background(), &ServiceInfo{DeviceName: " "}); !errors.Is(err, ErrInvalidInstanceName) {
		t.Errorf("Advertise blank name: got %v", err)
	}
	if adv.Advertising() {
		t.Error("Advertising() = true")
	}
	adv.Stop()
}
