package strategy

import "github.com/eddiefleurent/gridiron/internal/apperrors"

// kindConstructors maps every recognized StrategyConfig.Kind onto the
// constructor that builds it. The set is closed — there is no runtime
// plugin loading, so adding a strategy variant means adding an entry here.
var kindConstructors = map[string]func(id string, cfg StrategyConfig) Strategy{
	string(BullPut):  func(id string, cfg StrategyConfig) Strategy { return NewVerticalStrategy(id, BullPut, cfg) },
	string(BearCall): func(id string, cfg StrategyConfig) Strategy { return NewVerticalStrategy(id, BearCall, cfg) },
	string(BullCall): func(id string, cfg StrategyConfig) Strategy { return NewVerticalStrategy(id, BullCall, cfg) },
	string(BearPut):  func(id string, cfg StrategyConfig) Strategy { return NewVerticalStrategy(id, BearPut, cfg) },
	string(CallCalendar): func(id string, cfg StrategyConfig) Strategy {
		return NewCalendarStrategy(id, CallCalendar, cfg)
	},
	string(PutCalendar): func(id string, cfg StrategyConfig) Strategy {
		return NewCalendarStrategy(id, PutCalendar, cfg)
	},
	"iron_condor": func(id string, cfg StrategyConfig) Strategy { return NewIronCondorStrategy(id, cfg) },
}

// Build constructs the one Strategy implementation that matches cfg.Kind.
func Build(id string, cfg StrategyConfig) (Strategy, error) {
	ctor, ok := kindConstructors[cfg.Kind]
	if !ok {
		return nil, apperrors.NewConfigError("strategies."+id+".kind", "unrecognized kind "+cfg.Kind)
	}
	return ctor(id, cfg), nil
}

// BuildAll constructs one Strategy per entry in configs, in the
// deterministic order given by names, skipping disabled strategies.
func BuildAll(names []string, configs map[string]StrategyConfig) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		cfg, ok := configs[name]
		if !ok {
			continue
		}
		if !cfg.Enabled {
			continue
		}
		s, err := Build(name, cfg)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}
