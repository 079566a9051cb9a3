package domain

// LockerStatus enumerates physical locker states.
type LockerStatus string

const (
	LockerAvailable   LockerStatus = "AVAILABLE"
	LockerOccupied    LockerStatus = "OCCUPIED"
	LockerMaintenance LockerStatus = "MAINTENANCE"
)

// Locker is a single physical storage unit.
type Locker struct {
	ID              string
	Name            string
	Status          LockerStatus
	LockerPointID   string
	LockerPointName string
}

// LockerPoint is a named physical site containing multiple lockers.
type LockerPoint struct {
	ID      string
	Name    string
	Address string
	CityID  string
	Lockers []Locker
}

// City groups locker points.
type City struct {
	ID           string
	Name         string
	LockerPoints []LockerPoint
}

// State groups cities.
type State struct {
	ID     string
	Name   string
	Cities []City
}
