package domain

// Rows written by the SQLite report export. Dates are ISO strings; a
// missing date is stored as NULL.

type ExportRun struct {
	ID           string `json:"id"`
	DocumentID   string `json:"document_id"`
	Policy       string `json:"policy"`
	EpisodeCount int    `json:"episode_count"`
	CreatedAt    string `json:"created_at"`
}

type EpisodeRow struct {
	RunID           string  `json:"run_id"`
	ID              string  `json:"id"`
	Position        int     `json:"position"`
	Date            string  `json:"date"`
	Title           string  `json:"title"`
	Viability       float64 `json:"viability"`
	Schedule        float64 `json:"schedule"`
	Publication     float64 `json:"publication"`
	Tolerance       float64 `json:"tolerance"`
	Bias            string  `json:"bias"`
	Coherent        bool    `json:"coherent"`
	GanttComputable bool    `json:"gantt_computable"`
}

type GanttBarRow struct {
	RunID     string   `json:"run_id"`
	EpisodeID string   `json:"episode_id"`
	Position  int      `json:"position"`
	TaskID    string   `json:"task_id"`
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
	Status    string   `json:"status,omitempty"`
	Offset    *float64 `json:"offset_percent,omitempty"`
	Width     *float64 `json:"width_percent,omitempty"`
}

type PublicationRow struct {
	RunID         string `json:"run_id"`
	EpisodeID     string `json:"episode_id"`
	Position      int    `json:"position"`
	Titulo        string `json:"titulo"`
	Tipo          string `json:"tipo"`
	Status        string `json:"status"`
	Accepted      bool   `json:"accepted"`
	Local         string `json:"local"`
	DataSubmissao string `json:"data_submissao"`
	DataFinal     string `json:"data_final"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload"`
}
