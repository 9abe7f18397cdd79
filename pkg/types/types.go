package types

import (
	"github.com/steveyiyo/formcoach-backend/internal/core/coach"
	"github.com/steveyiyo/formcoach-backend/internal/core/playback"
	"github.com/steveyiyo/formcoach-backend/internal/core/pose"
)

type CreateSessionReq struct {
	Exercise   string `json:"exercise" binding:"required"`
	TargetReps int    `json:"target_reps" binding:"gte=0,lte=1000"`
	Locale     string `json:"locale"`
	Voice      string `json:"voice"`
	Muted      bool   `json:"muted"`
}

type CreateSessionResp struct {
	SessionID string   `json:"session_id"`
	WSURL     string   `json:"ws_url"`
	Exercise  string   `json:"exercise"`
	Stages    []string `json:"stages"`
}

type ExerciseResp struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

type TTSReq struct {
	Text        string `json:"text" binding:"required,max=500"`
	Voice       string `json:"voice"`
	Instruction string `json:"instruction"`
}

type TTSResp struct {
	MIME       string `json:"mime"`
	AudioB64   string `json:"audio_b64"`
	DurationMs int64  `json:"duration_ms"`
}

// FrameMsg is one analysed frame sent by the client. Either Landmarks (the
// 33-point MediaPipe layout) or Joints (keyed by joint name) is set.
type FrameMsg struct {
	Type      string                   `json:"type"`
	TS        int64                    `json:"ts"`
	Landmarks []pose.Landmark          `json:"landmarks,omitempty"`
	Joints    map[string]pose.Landmark `json:"joints,omitempty"`
	coach.Classification
}

type OverlayMsg struct {
	Type        string                 `json:"type"`
	TS          int64                  `json:"ts"`
	Target      pose.TargetPose        `json:"target"`
	Corrections []pose.JointCorrection `json:"corrections"`
}

type CoachMsg struct {
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Event    coach.EventType `json:"event"`
	Priority coach.Priority  `json:"priority"`
	TS       int64           `json:"ts"`
}

// NewCoachMsg converts an emitted coaching message to its wire form.
func NewCoachMsg(m *coach.Message) CoachMsg {
	return CoachMsg{
		Type:     "coach",
		ID:       m.ID,
		Text:     m.Text,
		Event:    m.Type,
		Priority: m.Priority,
		TS:       m.Timestamp.UnixMilli(),
	}
}

type SummaryResp struct {
	SessionID      string         `json:"session_id"`
	Exercise       string         `json:"exercise"`
	TargetReps     int            `json:"target_reps"`
	FramesAnalyzed int64          `json:"frames_analyzed"`
	Reps           int            `json:"reps"`
	Messages       map[string]int `json:"messages"`
	Recent         []CoachMsg     `json:"recent"`
	Utterances     playback.Stats `json:"utterances"`
	Muted          bool           `json:"muted"`
}
