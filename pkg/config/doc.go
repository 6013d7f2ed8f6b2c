// Package config defines the bridge's two kinds of configuration.
//
// Record is the device configuration persisted in the checksum store and
// edited from the interactive menu (device name, baud rates, pins). Its
// layout is fixed and byte-compatible with the firmware's EEPROM image.
//
// Settings is the daemon configuration read from a YAML file at startup:
// which serial devices back the local and remote channels, where the
// wireless endpoint listens, where the record is stored, and the
// arbitration and logging parameters.
package config
