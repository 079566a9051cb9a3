package dto

// OTPRequest payload for POST /lockers/{id}/request-otp.
type OTPRequest struct {
	Contact string `json:"contact"`
}

// CollectRequest payload for POST /lockers/{id}/collect.
type CollectRequest struct {
	OTP string `json:"otp"`
}

// CollectResponse is the result payload of a successful collection.
type CollectResponse struct {
	ItemID      int64   `json:"item_id"`
	LockerID    string  `json:"locker_id"`
	TotalAmount float64 `json:"total_amount"`
	StoredAt    string  `json:"stored_at,omitempty"`
	CollectedAt string  `json:"collected_at,omitempty"`
	Detail      string  `json:"detail,omitempty"`
}

// LockerResponse describes one locker.
type LockerResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	LockerPointID   string `json:"locker_point_id,omitempty"`
	LockerPointName string `json:"locker_point_name,omitempty"`
}

// LockerCreateRequest payload for admin locker creation.
type LockerCreateRequest struct {
	LockerPointID string `json:"locker_point_id"`
}

// LockerUpdateRequest payload for admin locker updates.
type LockerUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty"`
}

// DeleteResponse acknowledges an admin delete or force-clear.
type DeleteResponse struct {
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

// LockerPointResponse describes a locker point with its lockers.
type LockerPointResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Address string           `json:"address,omitempty"`
	CityID  string           `json:"city_id"`
	Lockers []LockerResponse `json:"lockers,omitempty"`
}

// CityResponse describes a city with its locker points.
type CityResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	LockerPoints []LockerPointResponse `json:"locker_points,omitempty"`
}

// StateResponse describes a state with its cities.
type StateResponse struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Cities []CityResponse `json:"cities,omitempty"`
}
