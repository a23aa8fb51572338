package domain

type Lab struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	Computers []*Computer `json:"computers,omitempty"`
}

type Computer struct {
	ID       int64 `json:"id"`
	LabID    int64 `json:"lab_id"`
	IsBooked bool  `json:"is_booked"`
}

// LabSummary is the record shape served under the "labs" key of /api/labs.
// Clients only rely on Name.
type LabSummary struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	TotalComputers     int    `json:"total_computers"`
	AvailableComputers int    `json:"available_computers"`
}

// MaxLabNameLen is the longest lab name, in characters, the labs table holds.
const MaxLabNameLen = 100

// LabSeed describes a lab created at startup with a fixed number of computers.
type LabSeed struct {
	Name      string `toml:"name"`
	Computers int    `toml:"computers"`
}

// DefaultLabSeeds are the labs provisioned on a fresh database.
func DefaultLabSeeds() []LabSeed {
	return []LabSeed{
		{Name: "Lab 120", Computers: 20},
		{Name: "Lab L44", Computers: 15},
		{Name: "Lab 170", Computers: 10},
		{Name: "Lab 210", Computers: 10},
		{Name: "Lab 128", Computers: 10},
	}
}
