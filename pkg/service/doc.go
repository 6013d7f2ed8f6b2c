// Package service assembles the console bridge.
//
// A Bridge owns every component of a running bridge: the persisted device
// record, the ownership arbiter and router, the menu line editor and
// command table, the serial links for the local and remote channels, the
// wireless server, mDNS advertisement and the status task.
//
// Example usage:
//
//	settings := config.DefaultSettings()
//	b, err := service.NewBridge(service.BridgeConfig{Settings: settings, Logger: logger})
//	if err != nil {
//		return err
//	}
//	return b.Run(ctx)
//
// The menu command set mirrors the device firmware: get/set baud for both
// serial channels, get/set bt_name, echo on/off and get status. Every
// mutating command persists the record before it takes effect.
package service
