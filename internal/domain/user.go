package domain

const (
	// ExperiencePerLevel is the amount of experience that advances a user by
	// one level. Level is a pure function of cumulative experience.
	ExperiencePerLevel int64 = 1000

	// LevelUpBonus is the coin credit granted per level gained.
	LevelUpBonus int64 = 100
)

// User is the ledger subject: the balance and experience bookkeeping for one
// participant. Balance never goes negative; debits are clamped at zero rather
// than rejected.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Balance    int64  `json:"balance"`
	Level      int    `json:"level"`
	Experience int64  `json:"experience"`
}

// LevelForExperience returns the level derived from cumulative experience,
// starting at level 1.
func LevelForExperience(exp int64) int {
	if exp < 0 {
		exp = 0
	}
	return 1 + int(exp/ExperiencePerLevel)
}
