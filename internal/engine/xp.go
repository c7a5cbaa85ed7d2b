package engine

import "tracktivity/internal/storage"

const (
	// XPLevelUnit scales the linear curve: XP_req(L) = ((L-1) + L) * 30.
	XPLevelUnit = 30

	// LevelUpCoins is granted on every level-up.
	LevelUpCoins = 10
)

// XPRequiredForLevel returns the XP needed to advance from level to level+1.
// Levels below 1 are treated as level 1.
func XPRequiredForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return ((level - 1) + level) * XPLevelUnit
}

// AddXP credits amount and applies every level-up it triggers. It returns the
// levels reached, in order. Each level-up refills hp and grants LevelUpCoins.
func AddXP(p *storage.Profile, amount int) []int {
	if amount <= 0 {
		return nil
	}
	if p.Level < 1 {
		p.Level = 1
	}
	p.XP += amount

	var reached []int
	for p.XP >= XPRequiredForLevel(p.Level) {
		p.XP -= XPRequiredForLevel(p.Level)
		p.Level++
		p.HP = p.MaxHP
		AddCoins(p, LevelUpCoins)
		if p.Level > p.HighestLevelEver {
			p.HighestLevelEver = p.Level
		}
		reached = append(reached, p.Level)
	}
	p.MaxXP = XPRequiredForLevel(p.Level)
	return reached
}

// RemoveXP deducts amount, walking down one level at a time while the deficit
// exceeds the current level's XP. It mirrors AddXP exactly: removing what was
// just added restores the prior level and xp. At level 1 xp clamps to 0.
// It returns the number of levels lost.
func RemoveXP(p *storage.Profile, amount int) int {
	if amount <= 0 {
		return 0
	}
	if p.Level < 1 {
		p.Level = 1
	}
	p.XP -= amount

	lost := 0
	for p.XP < 0 && p.Level > 1 {
		p.Level--
		p.XP += XPRequiredForLevel(p.Level)
		lost++
	}
	if p.XP < 0 {
		p.XP = 0
	}
	p.MaxXP = XPRequiredForLevel(p.Level)
	return lost
}

// LoseHealth applies damage. When hp hits 0 the user is knocked out: one level
// is lost (floor 1), xp and coins are wiped and hp refills. It reports whether
// the knock-out happened.
func LoseHealth(p *storage.Profile, amount int) bool {
	if amount <= 0 {
		return false
	}
	p.HP -= amount
	if p.HP > 0 {
		return false
	}
	if p.Level > 1 {
		p.Level--
	}
	p.XP = 0
	p.MaxXP = XPRequiredForLevel(p.Level)
	p.HP = p.MaxHP
	p.Coins = 0
	return true
}

// AddCoins credits both the balance and the lifetime total.
func AddCoins(p *storage.Profile, amount int) {
	if amount <= 0 {
		return
	}
	p.Coins += amount
	p.AllTimeCoinsEarned += amount
}

// RemoveCoins reverses an AddCoins. Neither counter goes below zero.
func RemoveCoins(p *storage.Profile, amount int) {
	if amount <= 0 {
		return
	}
	p.Coins = max(0, p.Coins-amount)
	p.AllTimeCoinsEarned = max(0, p.AllTimeCoinsEarned-amount)
}
