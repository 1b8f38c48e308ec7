package hub

import (
	"context"

	"github.com/hitoshi/questlog/internal/model"
)

// Stats はダッシュボードのヘッダーに表示する集計値。
type Stats struct {
	Games              int                      `json:"games"`
	GamesByStatus      map[model.GameStatus]int `json:"games_by_status"`
	TotalMinutesPlayed int                      `json:"total_minutes_played"`
	Ideas              int                      `json:"ideas"`
	Apps               int                      `json:"apps"`
	LiveApps           int                      `json:"live_apps"`
	LearningItems      int                      `json:"learning_items"`
	MasteredTopics     int                      `json:"mastered_topics"`
}

// Stats はワークスペースの集計値を返す。
func (s *Service) Stats(ctx context.Context, session *model.Session) (*Stats, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	stats := &Stats{
		Games:         len(ws.games.items),
		GamesByStatus: make(map[model.GameStatus]int, len(model.GameStatuses)),
		Ideas:         len(ws.ideas.items),
		Apps:          len(ws.apps.items),
		LearningItems: len(ws.learning.items),
	}
	for _, st := range model.GameStatuses {
		stats.GamesByStatus[st] = 0
	}
	for _, g := range ws.games.items {
		stats.GamesByStatus[g.Status]++
		stats.TotalMinutesPlayed += g.TotalMinutes()
	}
	for _, a := range ws.apps.items {
		if a.Status == model.AppStatusLive {
			stats.LiveApps++
		}
	}
	for _, l := range ws.learning.items {
		if l.Status == model.LearningStatusMastered {
			stats.MasteredTopics++
		}
	}
	return stats, nil
}
