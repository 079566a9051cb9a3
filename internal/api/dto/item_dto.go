package dto

// ItemCreateRequest payload for storing an item in a locker. Field names
// follow the remote contract.
type ItemCreateRequest struct {
	Name                string `json:"name"`
	LockerID            string `json:"locker_id"`
	YourEmail           string `json:"your_email"`
	ReceiverPhoneNumber string `json:"receiver_phone_number"`
	ReceiverEmailID     string `json:"receiver_emailid"`
	Description         string `json:"description,omitempty"`
}

// ItemResponse describes a stored item.
type ItemResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	LockerID      string `json:"locker_id"`
	YourEmail     string `json:"your_email"`
	ReceiverPhone string `json:"receiver_phone"`
	ReceiverEmail string `json:"receiver_email"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// TransactionResponse is one billing record.
type TransactionResponse struct {
	ItemID      int64   `json:"item_id"`
	LockerID    string  `json:"locker_id"`
	TotalAmount float64 `json:"total_amount,omitempty"`
	Detail      string  `json:"detail,omitempty"`
}
