package domain

import "time"

// ItemStatus enumerates stored-item states.
type ItemStatus string

const (
	ItemStored    ItemStatus = "OCCUPIED"
	ItemCollected ItemStatus = "COLLECTED"
)

// Item is a package stored in a locker awaiting collection.
type Item struct {
	ID            int64
	Name          string
	Description   string
	LockerID      string
	SenderEmail   string
	ReceiverPhone string
	ReceiverEmail string
	Status        ItemStatus
	CreatedAt     time.Time
}

// CollectionResult is the server payload returned by a successful collect.
type CollectionResult struct {
	ItemID      int64
	LockerID    string
	TotalAmount float64
	StoredAt    time.Time
	CollectedAt time.Time
	Detail      string
}

// Transaction is one billing record for a completed collection.
type Transaction struct {
	ItemID      int64
	LockerID    string
	TotalAmount float64
	Detail      string
}
