// Package discovery advertises the bridge's wireless endpoint over mDNS and
// finds bridges on the local network.
//
// # Service Type
//
// Bridges register "_btserial._tcp" in the "local" domain. The instance
// name is the device name from the persisted configuration, so renaming the
// device with "set bt_name" re-registers the service under the new name.
//
// # TXT Records
//
//	name=LC29HEA-BT   device name (required)
//	lvl=87            status level in percent (optional)
//	ver=1             TXT format version
//
// The level is refreshed in place with SetText; clients see it change
// without the service disappearing.
package discovery
