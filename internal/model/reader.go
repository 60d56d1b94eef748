// internal/model/reader.go
package model

import (
	"encoding/json"
	"fmt"
)

// DiscoveryMethod represents how readers are scanned for
type DiscoveryMethod string

const (
	DiscoveryMethodBluetoothScan      DiscoveryMethod = "bluetoothScan"
	DiscoveryMethodBluetoothProximity DiscoveryMethod = "bluetoothProximity"
	DiscoveryMethodInternet           DiscoveryMethod = "internet"
	DiscoveryMethodLocalMobile        DiscoveryMethod = "localMobile"
)

// ParseDiscoveryMethod maps the host's discovery method name to a known method
func ParseDiscoveryMethod(name string) (DiscoveryMethod, bool) {
	switch DiscoveryMethod(name) {
	case DiscoveryMethodBluetoothScan,
		DiscoveryMethodBluetoothProximity,
		DiscoveryMethodInternet,
		DiscoveryMethodLocalMobile:
		return DiscoveryMethod(name), true
	default:
		return "", false
	}
}

// DiscoveryConfiguration describes a single discovery scan
type DiscoveryConfiguration struct {
	DiscoveryMethod DiscoveryMethod `json:"discoveryMethod"`
	LocationID      *string         `json:"locationId,omitempty"`
	Simulated       bool            `json:"simulated"`
}

// ConnectionStatus mirrors the SDK's connection status raw values
type ConnectionStatus int

const (
	ConnectionStatusNotConnected ConnectionStatus = 0
	ConnectionStatusConnected    ConnectionStatus = 1
	ConnectionStatusConnecting   ConnectionStatus = 2
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionStatusNotConnected:
		return "notConnected"
	case ConnectionStatusConnected:
		return "connected"
	case ConnectionStatusConnecting:
		return "connecting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// BatteryStatus represents the reader's coarse battery state
type BatteryStatus int

const (
	BatteryStatusUnknown  BatteryStatus = 0
	BatteryStatusCritical BatteryStatus = 1
	BatteryStatusLow      BatteryStatus = 2
	BatteryStatusNominal  BatteryStatus = 3
)

// LocationStatus represents whether the reader is registered to a location
type LocationStatus int

const (
	LocationStatusUnknown LocationStatus = 0
	LocationStatusSet     LocationStatus = 1
	LocationStatusNotSet  LocationStatus = 2
)

// DeviceType represents the reader hardware family
type DeviceType int

const (
	DeviceTypeChipper2X      DeviceType = 0
	DeviceTypeVerifoneP400   DeviceType = 1
	DeviceTypeWisePad3       DeviceType = 2
	DeviceTypeStripeM2       DeviceType = 3
	DeviceTypeWisePosE       DeviceType = 4
	DeviceTypeWisePosEDevKit DeviceType = 5
	DeviceTypeEtna           DeviceType = 6
	DeviceTypeS700           DeviceType = 9
	DeviceTypeAppleBuiltIn   DeviceType = 10
)

// Reader is an immutable snapshot of a discovered or connected card reader
type Reader struct {
	SerialNumber          string          `json:"serialNumber"`
	OriginalJSON          json.RawMessage `json:"originalJSON,omitempty"`
	AvailableUpdate       bool            `json:"availableUpdate"`
	BatteryLevel          *float64        `json:"batteryLevel"`
	BatteryStatus         BatteryStatus   `json:"batteryStatus"`
	DeviceSoftwareVersion *string         `json:"deviceSoftwareVersion"`
	DeviceType            DeviceType      `json:"deviceType"`
	LocationID            *string         `json:"locationId"`
	IPAddress             *string         `json:"ipAddress"`
	IsCharging            *bool           `json:"isCharging"`
	Label                 *string         `json:"label"`
	LocationStatus        LocationStatus  `json:"locationStatus"`
	StripeID              *string         `json:"stripeId"`
	Simulated             bool            `json:"simulated"`
}

// HasLocation reports whether the reader carries its own location id
func (r *Reader) HasLocation() bool {
	return r.LocationID != nil && *r.LocationID != ""
}

// ConnectionKind tags the connection strategy
type ConnectionKind string

const (
	ConnectionKindBluetooth   ConnectionKind = "bluetooth"
	ConnectionKindLocalMobile ConnectionKind = "localMobile"
	ConnectionKindInternet    ConnectionKind = "internet"
)

// BluetoothConnectionConfig configures a Bluetooth reader connection
type BluetoothConnectionConfig struct {
	LocationID string `json:"locationId"`
}

// LocalMobileConnectionConfig configures a tap-to-pay connection
type LocalMobileConnectionConfig struct {
	LocationID          string  `json:"locationId"`
	MerchantDisplayName string  `json:"merchantDisplayName"`
	OnBehalfOf          *string `json:"onBehalfOf,omitempty"`
}

// InternetConnectionConfig configures a network reader connection
type InternetConnectionConfig struct {
	FailIfInUse bool `json:"failIfInUse"`
}

// ConnectionConfig is a tagged variant carrying exactly one payload for Kind
type ConnectionConfig struct {
	Kind        ConnectionKind
	Bluetooth   *BluetoothConnectionConfig
	LocalMobile *LocalMobileConnectionConfig
	Internet    *InternetConnectionConfig
}
