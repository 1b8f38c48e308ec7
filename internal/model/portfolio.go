// Package model はドメインモデルを定義する。
package model

import "time"

// Priority はアイデアの優先度を表す。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid は定義済みの優先度かどうかを返す。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Idea はアイデアメモを表す。
type Idea struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Tags        []string  `json:"tags"`
	Priority    Priority  `json:"priority"`
}

// EntityID はエンティティIDを返す。
func (i Idea) EntityID() string { return i.ID }

// Created は作成日時を返す。
func (i Idea) Created() time.Time { return i.CreatedAt }

// AppStatus はサイドプロジェクトの状態を表す。
type AppStatus string

const (
	AppStatusDevelopment AppStatus = "Development"
	AppStatusLive        AppStatus = "Live"
	AppStatusMaintenance AppStatus = "Maintenance"
)

// Valid は定義済みの状態かどうかを返す。
func (s AppStatus) Valid() bool {
	switch s {
	case AppStatusDevelopment, AppStatusLive, AppStatusMaintenance:
		return true
	default:
		return false
	}
}

// AppProject はサイドプロジェクト（アプリ）を表す。
type AppProject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	TechStack   []string  `json:"tech_stack"`
	Status      AppStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntityID はエンティティIDを返す。
func (a AppProject) EntityID() string { return a.ID }

// Created は作成日時を返す。
func (a AppProject) Created() time.Time { return a.CreatedAt }

// LearningStatus は学習トピックの進み具合を表す。
type LearningStatus string

const (
	LearningStatusToLearn  LearningStatus = "To Learn"
	LearningStatusLearning LearningStatus = "Learning"
	LearningStatusMastered LearningStatus = "Mastered"
)

// Valid は定義済みの状態かどうかを返す。
func (s LearningStatus) Valid() bool {
	switch s {
	case LearningStatusToLearn, LearningStatusLearning, LearningStatusMastered:
		return true
	default:
		return false
	}
}

// LearningItem は学習トピックを表す。
type LearningItem struct {
	ID        string         `json:"id"`
	Topic     string         `json:"topic"`
	Category  string         `json:"category"`
	Status    LearningStatus `json:"status"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EntityID はエンティティIDを返す。
func (l LearningItem) EntityID() string { return l.ID }

// Created は作成日時を返す。
func (l LearningItem) Created() time.Time { return l.CreatedAt }

// Clone はTagsスライスを含めたコピーを返す。
func (i Idea) Clone() Idea {
	c := i
	if i.Tags != nil {
		c.Tags = append([]string(nil), i.Tags...)
	}
	return c
}

// Clone はTechStackスライスを含めたコピーを返す。
func (a AppProject) Clone() AppProject {
	c := a
	if a.TechStack != nil {
		c.TechStack = append([]string(nil), a.TechStack...)
	}
	return c
}

// Clone はコピーを返す。参照型のフィールドは持たない。
func (l LearningItem) Clone() LearningItem { return l }
