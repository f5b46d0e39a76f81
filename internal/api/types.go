package api

type Timepoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Trip struct {
	ID          string `json:"id"`
	BlockID     string `json:"block_id"`
	RouteID     string `json:"route_id"`
	RunID       string `json:"run_id"`
	Headsign    string `json:"headsign"`
	DirectionID *int   `json:"direction_id"`
	ViaVariant  string `json:"via_variant"`
	StartTime   int    `json:"start_time"`
	EndTime     int    `json:"end_time"`
	StartPlace  string `json:"start_place"`
	EndPlace    string `json:"end_place"`
}

// Activity is a piece of work or a break within a run. Times are seconds
// after midnight of the service day.
type Activity struct {
	Type          string `json:"type"`
	RunID         string `json:"run_id"`
	BlockID       string `json:"block_id"`
	StartTime     int    `json:"start_time"`
	StartPlace    string `json:"start_place"`
	EndTime       int    `json:"end_time"`
	EndPlace      string `json:"end_place"`
	Trips         []Trip `json:"trips"`
	StartMidRoute bool   `json:"start_mid_route"`
	EndMidRoute   bool   `json:"end_mid_route"`
}

const ActivityPiece = "piece"

func (a Activity) IsBreak() bool { return a.Type != ActivityPiece }

type Run struct {
	ID         string     `json:"id"`
	Activities []Activity `json:"activities"`
}

type Block struct {
	ID     string     `json:"id"`
	Pieces []Activity `json:"pieces"`
}
