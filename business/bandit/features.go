package bandit

import (
	"fmt"
	"hash/fnv"
	"math"

	"shelfScout/domain"
)

// FeatureDim is the fixed context-vector length. Layout:
//
//	0        bias
//	1..12    mood one-hot (11 values + unknown)
//	13..22   situation one-hot (9 values + unknown)
//	23..32   goal one-hot (9 values + unknown)
//	33..37   time-of-day one-hot (4 values + unknown)
//	38       day-of-week bucket [0,1]
//	39       weekend flag
//	40..41   hour-of-day sin/cos
//	42       mood x goal interaction hash
//	43       situation x time-of-day interaction hash
const FeatureDim = 44

// Vocabularies are fixed at build time. Anything else lands in the reserved
// unknown bucket (last slot of each block).
var (
	moodVocab = [...]string{
		"happy", "sad", "stressed", "relaxed", "curious", "adventurous",
		"nostalgic", "romantic", "melancholic", "energetic", "bored",
	}
	situationVocab = [...]string{
		"commuting", "bedtime", "vacation", "weekend", "lunch_break",
		"travel", "home", "work_break", "waiting",
	}
	goalVocab = [...]string{
		"learn", "escape", "grow", "laugh", "challenge", "unwind",
		"inspire", "connect", "explore",
	}
	timeOfDayVocab = [...]string{"morning", "afternoon", "evening", "night"}
)

const (
	moodOffset      = 1
	situationOffset = moodOffset + len(moodVocab) + 1           // 13
	goalOffset      = situationOffset + len(situationVocab) + 1 // 23
	todOffset       = goalOffset + len(goalVocab) + 1           // 33
	dowIndex        = todOffset + len(timeOfDayVocab) + 1       // 38
	weekendIndex    = dowIndex + 1
	hourSinIndex    = weekendIndex + 1
	hourCosIndex    = hourSinIndex + 1
	moodGoalIndex   = hourCosIndex + 1
	sitTodIndex     = moodGoalIndex + 1
)

// EncodeContext maps situational attributes into the fixed feature vector.
// Pure and deterministic: identical input yields a bit-identical vector.
// Time-derived terms come from ObservedAt, never from the wall clock.
func EncodeContext(rc domain.RequestContext) [FeatureDim]float64 {
	var x [FeatureDim]float64

	x[0] = 1.0

	setOneHot(&x, moodOffset, moodVocab[:], rc.Mood)
	setOneHot(&x, situationOffset, situationVocab[:], rc.Situation)
	setOneHot(&x, goalOffset, goalVocab[:], rc.Goal)

	tod := rc.TimeOfDay
	if tod == "" && !rc.ObservedAt.IsZero() {
		tod = timeBucketLabel(rc.ObservedAt.Hour())
	}
	setOneHot(&x, todOffset, timeOfDayVocab[:], tod)

	if !rc.ObservedAt.IsZero() {
		dow := int(rc.ObservedAt.Weekday())
		x[dowIndex] = float64(dow) / 6.0
		if dow == 0 || dow == 6 {
			x[weekendIndex] = 1.0
		}
		rad := 2 * math.Pi * float64(rc.ObservedAt.Hour()) / 24.0
		x[hourSinIndex] = math.Sin(rad)
		x[hourCosIndex] = math.Cos(rad)
	}

	x[moodGoalIndex] = hashToUnit("mood:" + rc.Mood + "|goal:" + rc.Goal)
	x[sitTodIndex] = hashToUnit("sit:" + rc.Situation + "|tod:" + tod)

	return x
}

// setOneHot writes the one-hot block starting at offset. Unknown or empty
// values light up the reserved last slot.
func setOneHot(x *[FeatureDim]float64, offset int, vocab []string, value string) {
	for i, v := range vocab {
		if v == value {
			x[offset+i] = 1.0
			return
		}
	}
	x[offset+len(vocab)] = 1.0
}

func timeBucketLabel(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// hashToUnit deterministically hashes a string into [0, 1].
func hashToUnit(s string) float64 {
	if s == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32()) / float64(^uint32(0))
}

// BookFeatures folds a book into a context vector for the linear strategy's
// per-book scoring: the context blocks stay put and the interaction slots
// pick up the book identity.
func BookFeatures(x [FeatureDim]float64, bookID uint64) [FeatureDim]float64 {
	x[moodGoalIndex] = hashToUnit(fmt.Sprintf("book:%d|slot:mg", bookID))
	x[sitTodIndex] = hashToUnit(fmt.Sprintf("book:%d|slot:st", bookID))
	return x
}
