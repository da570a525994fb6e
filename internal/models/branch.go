package models

// ServiceInfo - one entry of the public service catalogue
type ServiceInfo struct {
	Type   ServiceType `json:"type"`
	Name   string      `json:"name"`
	Prefix string      `json:"prefix"`
}

// BranchInfo - opening hours as configured ("HH:MM"), empty when the branch never closes
type BranchInfo struct {
	Open     string        `json:"open,omitempty"`
	Close    string        `json:"close,omitempty"`
	Timezone string        `json:"timezone,omitempty"`
	IsOpen   bool          `json:"is_open"`
	Services []ServiceInfo `json:"services"`
}
