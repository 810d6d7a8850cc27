package emotion

import "time"

// Label 表示情绪识别后端可能返回的情绪标签。
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Stressed Label = "stressed"
	Confused Label = "confused"
)

// Sample 保存最近一次识别到的情绪，每个采样周期被覆盖一次，不做持久化。
type Sample struct {
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Known 判断标签是否属于后端映射后的词表，未知标签展示为 neutral。
func Known(label string) bool {
	switch Label(label) {
	case Neutral, Happy, Stressed, Confused:
		return true
	}
	return false
}
