// Package status publishes the bridge's status level and watches the
// wireless client.
//
// A Task polls a LevelSource on a fixed interval and republishes the
// level through a discovery.Advertiser. It also tracks the wireless
// client: connect and disconnect transitions are reported on the console
// and the endpoint is advertised again shortly after a client leaves.
package status
