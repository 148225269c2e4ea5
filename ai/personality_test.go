package ai

import (
	"math"
	"math/rand"
	"testing"
)

func TestPersonalityDataShape(t *testing.T) {
	all := []Personality{Balanced, Aggressive, Cautious, Loyal, Loner}
	for _, p := range all {
		d, ok := PersonalityData[p]
		if !ok {
			t.Fatalf("no dials for %v", p)
		}
		for name, v := range map[string]float64{
			"aggressiveness": d.Aggressiveness,
			"caution":        d.Caution,
			"teamwork":       d.Teamwork,
		} {
			if v < 0 || v > 1 {
				t.Errorf("%v %s = %v, want within [0, 1]", p, name, v)
			}
		}
	}

	if PersonalityData[Aggressive].Aggressiveness <= PersonalityData[Cautious].Aggressiveness {
		t.Error("aggressive personality not more aggressive than cautious")
	}
	if PersonalityData[Cautious].Caution <= PersonalityData[Aggressive].Caution {
		t.Error("cautious personality not more careful than aggressive")
	}
	for _, p := range []Personality{Balanced, Aggressive, Cautious, Loner} {
		if PersonalityData[Loyal].Teamwork <= PersonalityData[p].Teamwork {
			t.Errorf("loyal teamwork not above %v", p)
		}
		if p != Loner && PersonalityData[Loner].Teamwork >= PersonalityData[p].Teamwork {
			t.Errorf("loner teamwork not below %v", p)
		}
	}
}

func TestRandomizedDialsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, p := range []Personality{Balanced, Aggressive, Cautious, Loyal, Loner} {
		for i := 0; i < 50; i++ {
			d := RandomizedDials(p, 0, rng)
			for _, v := range []float64{d.Aggressiveness, d.Caution, d.Teamwork} {
				if v < 0 || v > 1 {
					t.Fatalf("%v dial %v outside [0, 1]", p, v)
				}
			}
		}
	}
}

func TestRandomizedDialsTightenWithDifficulty(t *testing.T) {
	maxDeviation := func(score float64, seed int64) float64 {
		rng := rand.New(rand.NewSource(seed))
		base := PersonalityData[Balanced]
		var worst float64
		for i := 0; i < 200; i++ {
			d := RandomizedDials(Balanced, score, rng)
			worst = math.Max(worst, math.Abs(d.Aggressiveness-base.Aggressiveness))
			worst = math.Max(worst, math.Abs(d.Caution-base.Caution))
			worst = math.Max(worst, math.Abs(d.Teamwork-base.Teamwork))
		}
		return worst
	}

	loose := maxDeviation(0, 11)
	tight := maxDeviation(1, 11)

	if loose > personalityJitter {
		t.Errorf("deviation %v at score 0, want within %v", loose, personalityJitter)
	}
	if tight > personalityJitter/2 {
		t.Errorf("deviation %v at score 1, want within %v", tight, personalityJitter/2)
	}
	if tight >= loose {
		t.Errorf("spread did not shrink: %v at score 1 vs %v at score 0", tight, loose)
	}
}

func TestRandomPersonalityCoversAll(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := make(map[Personality]int)
	for i := 0; i < 2000; i++ {
		seen[RandomPersonality(rng)]++
	}
	for _, p := range []Personality{Balanced, Aggressive, Cautious, Loyal, Loner} {
		if seen[p] == 0 {
			t.Errorf("%v never drawn", p)
		}
	}
	if len(seen) != 5 {
		t.Errorf("drew %d distinct personalities, want 5", len(seen))
	}
}
