package server

import (
	"jornada/internal/engine"
	"jornada/internal/kpi"
)

// Request payloads

type VerifyRequest struct {
	Name   string `json:"name" minLength:"1" doc:"File name as published"`
	SHA256 string `json:"sha256" pattern:"^[0-9a-fA-F]{64}$" doc:"Hex SHA-256 of the file"`
}

// Response payloads

type EpisodeSummary struct {
	ID       string     `json:"id"`
	Date     string     `json:"date"`
	DateBR   string     `json:"date_br"`
	Title    string     `json:"title"`
	Active   bool       `json:"active"`
	Bias     kpi.Label  `json:"bias"`
	Coherent bool       `json:"coherent"`
	KPIs     kpi.Labels `json:"kpis"`
}

type EpisodeList struct {
	Items []EpisodeSummary `json:"items"`
}

type ModalResponse struct {
	EpisodeID string `json:"episode_id"`
	Kind      string `json:"kind"`
	HTML      string `json:"html"`
}

func episodeList(e engine.Engine, active string) EpisodeList {
	reports := e.Reports()
	if active == "" && len(reports) > 0 {
		active = reports[0].ID
	}
	out := EpisodeList{Items: make([]EpisodeSummary, 0, len(reports))}
	for _, r := range reports {
		out.Items = append(out.Items, EpisodeSummary{
			ID:       r.ID,
			Date:     r.Date,
			DateBR:   r.DateBR,
			Title:    r.Title,
			Active:   r.ID == active,
			Bias:     r.Bias.Label,
			Coherent: r.Coherent,
			KPIs:     r.KPIs.Labels,
		})
	}
	return out
}
