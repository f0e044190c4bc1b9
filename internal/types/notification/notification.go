package notification

import "time"

// CollectionDevices holds one document per user listing their push tokens.
const CollectionDevices = "user_devices"

type DeviceToken struct {
	Token    string `json:"token" firestore:"token"`
	Platform string `json:"platform" firestore:"platform"`
}

type UserDevices struct {
	UserID    string        `json:"userId" firestore:"userId"`
	Tokens    []DeviceToken `json:"tokens" firestore:"tokens"`
	UpdatedAt time.Time     `json:"updatedAt" firestore:"updatedAt"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// AchievementJob is queued after a gamification commit unlocked achievements.
type AchievementJob struct {
	UserID       string
	Achievements []string
	TotalPoints  int
}
