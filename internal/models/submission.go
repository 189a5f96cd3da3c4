package models

// TimestampLayout is the fixed format of every record timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Booking is one lodging booking request. Field order matches the persisted
// JSON object.
type Booking struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Checkin   string `json:"checkin"`
	Checkout  string `json:"checkout"`
	Adults    string `json:"adults"`
	Children  string `json:"children"`
	RoomType  string `json:"roomType"`
	Message   string `json:"message"`
}

// Contact is one general contact-form message.
type Contact struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

var roomTypeNames = map[string]string{
	"executive":  "Executive Room (₵299/night)",
	"regular":    "Regular Bedroom (₵199/night)",
	"full-house": "Full House (Custom Pricing)",
}

// RoomTypeName returns the display name for a room code. Unknown codes are
// returned unchanged.
func RoomTypeName(code string) string {
	if name, ok := roomTypeNames[code]; ok {
		return name
	}
	return code
}
