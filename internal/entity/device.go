package entity

import "strings"

// DeviceStatusOnline is the portal's status value for reachable devices.
const DeviceStatusOnline = "online"

// Device is one row of the portal's device export.
type Device struct {
	Name   string
	Status string
}

// IsOnline reports whether the device status is exactly "online", ignoring case.
func (d Device) IsOnline() bool {
	return strings.EqualFold(d.Status, DeviceStatusOnline)
}
