package playback

import "pigflow.ai/internal/sim/tuning"

func ConfigFromTuning(t tuning.Tuning) (Config, error) {
	policy, err := ParseWeeklyReset(t.WeeklyReset)
	if err != nil {
		return Config{}, err
	}
	return Config{
		GrowthRateKg:  t.GrowthRateKg,
		WeeklyReset:   policy,
		MaxDays:       t.MaxDays,
		MaxLogEntries: t.MaxLogEntries,
		Slaughterhouse: Slaughterhouse{
			Name:     t.Slaughterhouse.Name,
			Lat:      t.Slaughterhouse.Lat,
			Lng:      t.Slaughterhouse.Lng,
			Capacity: t.Slaughterhouse.Capacity,
		},
	}, nil
}
