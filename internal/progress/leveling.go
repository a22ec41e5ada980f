package progress

// experiencePerLevel scales the experience needed to leave a level
const experiencePerLevel = 1000

// ApplyLevel rolls accumulated experience into levels. While experience
// covers the current threshold the level increases, the threshold is spent,
// and the next threshold becomes level*1000.
func ApplyLevel(level, experience, toNext int) (int, int, int) {
	if level < 1 {
		level = 1
	}
	if toNext <= 0 {
		toNext = level * experiencePerLevel
	}
	for experience >= toNext {
		level++
		experience -= toNext
		toNext = level * experiencePerLevel
	}
	return level, experience, toNext
}
