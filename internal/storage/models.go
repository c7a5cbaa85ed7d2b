package storage

import "time"

type Profile struct {
	UserID string
	Level  int
	XP     int
	MaxXP  int
	HP     int
	MaxHP  int
	Coins  int

	AvatarState      string
	AvatarBackground string
	AvatarFloor      string
	AvatarCharacter  string
	AvatarClothes    string
	AvatarShirt      string
	AvatarPants      string
	AvatarSocks      string
	AvatarShoes      string

	// Lifetime counters
	AllTimeHoursStudied    float64
	AllTimeTasksCompleted  int
	AllTimeHabitsCompleted int
	LongestDailyStreak     int
	AllTimeCoinsEarned     int
	HighestLevelEver       int

	LastDailyReset *time.Time
	CreatedAt      time.Time
}

type Habit struct {
	ID             int64
	UserID         string
	Title          string
	Details        string
	Difficulty     string
	AllowPositive  bool
	AllowNegative  bool
	PosCount       int
	NegCount       int
	ResetFrequency string
	LastReset      time.Time
	CreatedAt      time.Time
	Tags           []string
}

type Task struct {
	ID            int64
	UserID        string
	Title         string
	Details       string
	Difficulty    string
	Kind          string
	Due           *time.Time
	Completed     bool
	CompletedAt   *time.Time
	Streak        int
	LastCompleted *time.Time // midnight UTC of the completion day
	CreatedAt     time.Time
	Tags          []string
}

type HabitLog struct {
	ID         int64
	HabitID    int64
	HabitTitle string
	UserID     string
	Positive   bool
	CreatedAt  time.Time
}

type TaskLog struct {
	ID          int64
	TaskID      int64
	UserID      string
	XPEarned    int
	CoinsEarned int
	CreatedAt   time.Time
}

type LevelLog struct {
	ID        int64
	UserID    string
	Level     int
	CreatedAt time.Time
}

type StudySession struct {
	ID              int64
	UserID          string
	Subject         string
	Color           string
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes *int
	Active          bool
}

type SubjectColor struct {
	ID        int64
	UserID    string
	Subject   string
	Color     string
	Year      int
	Month     int
	CreatedAt time.Time
}

type ShopItem struct {
	ID          int64
	UserID      *string // nil for catalog items shared by every user
	Name        string
	Description string
	ItemType    string
	Price       int
	ImageURL    string
	Active      bool
}

type StatSlot struct {
	UserID   string
	Slot     int
	StatType *string
}
