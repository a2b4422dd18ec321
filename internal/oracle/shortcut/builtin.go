package shortcut

import "github.com/louisbranch/oracles/internal/oracle/rulesets"

const (
	sf = "starforged/oracles/"
	cl = "classic/oracles/"
)

// ClassicCharacterNames gathers every Ironsworn character name table,
// leaving out settlement and place names.
var ClassicCharacterNames = Pool{
	Prefixes: []string{cl + "name/"},
	Exclude:  []string{"settlement", "place", "quick_name", "location"},
}

// ClassicSettlementNames gathers the settlement name table, its themed
// sub-tables and the quick name parts.
var ClassicSettlementNames = Pool{
	Prefixes: []string{cl + "settlement/name/", cl + "settlement/quick_name/"},
	Exact:    []string{cl + "settlement/name"},
}

// Builtins returns the shortcuts shipped for mode.
func Builtins(mode rulesets.Mode) []Definition {
	switch mode {
	case rulesets.ModeClassic:
		return classicShortcuts()
	case rulesets.ModeStarforged:
		return starforgedShortcuts()
	default:
		return nil
	}
}

func roll(targets ...string) Directive {
	return Directive{Targets: targets}
}

func rollN(count int, target string) Directive {
	return Directive{Targets: []string{target}, Count: count}
}

func classicShortcuts() []Definition {
	characterPool := ClassicCharacterNames
	settlementPool := ClassicSettlementNames
	return []Definition{
		{
			Key:  "action_theme",
			Name: "Action & Theme",
			Directives: []Directive{
				roll(cl + "action_and_theme/action"),
				roll(cl + "action_and_theme/theme"),
			},
		},
		{
			Key:  "character",
			Name: "Full Character",
			Directives: []Directive{
				{
					Targets: []string{cl + "name/ironlander", cl + "name/elf", cl + "name/giant", cl + "name/varou", cl + "name/troll"},
					Role:    RoleCharacterName,
					Pool:    &characterPool,
				},
				roll(cl + "character/role"),
				roll(cl + "character/goal"),
				rollN(3, cl+"character/descriptor"),
			},
		},
		{
			Key:  "location",
			Name: "Location",
			Directives: []Directive{
				roll(cl + "place/location"),
				rollN(2, cl+"place/descriptor"),
			},
		},
		{
			Key:  "coastal_location",
			Name: "Coastal Location",
			Directives: []Directive{
				roll(cl + "place/coastal_waters_location"),
				rollN(2, cl+"place/descriptor"),
			},
		},
		{
			Key:  "settlement",
			Name: "Settlement",
			Directives: []Directive{
				{
					Targets: []string{cl + "settlement/name", cl + "settlement/quick_name/prefix"},
					Role:    RoleSettlementName,
					Pool:    &settlementPool,
				},
				roll(cl + "settlement/trouble"),
			},
		},
	}
}

func starforgedShortcuts() []Definition {
	planet := sf + "planets/" + CategoryPlaceholder + "/"
	return []Definition{
		{
			Key:  "action_theme",
			Name: "Action & Theme",
			Directives: []Directive{
				roll(sf + "core/action"),
				roll(sf + "core/theme"),
			},
		},
		{
			Key:  "descriptor_focus",
			Name: "Descriptor & Focus",
			Directives: []Directive{
				roll(sf + "core/descriptor"),
				roll(sf + "core/focus"),
			},
		},
		{
			Key:             "planet",
			Name:            "Planet",
			DefaultCategory: "desert",
			Directives: []Directive{
				{Targets: []string{sf + "planets/class"}, Role: RoleCategory},
				roll(planet + "name"),
				roll(planet + "settlements"),
				roll(planet + "atmosphere"),
				roll(planet + "life"),
				rollN(2, planet+"observed_from_space"),
				rollN(2, planet+"feature"),
			},
			FollowUps: []FollowUp{{
				Category: "vital",
				Directives: []Directive{
					roll(sf + "planets/vital/diversity"),
					roll(sf + "planets/vital/biomes"),
				},
			}},
		},
		{
			Key:  "character",
			Name: "Full Character",
			Directives: []Directive{
				{
					Targets: []string{sf + "characters/name/given", sf + "characters/name/callsign", sf + "characters/name/family_name"},
					Role:    RoleCharacterName,
				},
				roll(sf + "characters/role"),
				roll(sf + "characters/goal"),
				roll(sf + "characters/first_look"),
				roll(sf + "characters/initial_disposition"),
			},
		},
		{
			Key:  "starship",
			Name: "Starship",
			Directives: []Directive{
				roll(sf + "starships/starship_name"),
				roll(sf + "starships/type"),
				roll(sf + "starships/first_look"),
				roll(sf + "starships/initial_contact"),
			},
		},
		{
			Key:  "settlement",
			Name: "Settlement",
			Directives: []Directive{
				roll(sf + "settlements/name"),
				roll(sf + "settlements/location"),
				roll(sf + "settlements/population/" + RegionPlaceholder),
				roll(sf + "settlements/first_look"),
				roll(sf + "settlements/authority"),
				roll(sf + "settlements/trouble"),
			},
		},
	}
}
