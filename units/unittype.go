// Package units decodes the game's fixed-capacity unit array.
//
// Unit-type classification in this file is static: it never depends on memory content.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// UnitType is the game's 16-bit unit type id.
type UnitType uint16

const (
	TerranMarine               UnitType = 0
	TerranGhost                UnitType = 1
	TerranVulture              UnitType = 2
	TerranGoliath              UnitType = 3
	TerranGoliathTurret        UnitType = 4
	TerranSiegeTankTankMode    UnitType = 5
	TerranSiegeTankTankTurret  UnitType = 6
	TerranSCV                  UnitType = 7
	TerranWraith               UnitType = 8
	TerranScienceVessel        UnitType = 9
	HeroGuiMontag              UnitType = 10
	TerranDropship             UnitType = 11
	TerranBattlecruiser        UnitType = 12
	TerranVultureSpiderMine    UnitType = 13
	TerranNuclearMissile       UnitType = 14
	TerranCivilian             UnitType = 15
	HeroSarahKerrigan          UnitType = 16
	HeroAlanSchezar            UnitType = 17
	HeroJimRaynorVulture       UnitType = 19
	HeroJimRaynorMarine        UnitType = 20
	HeroTomKazansky            UnitType = 21
	HeroMagellan               UnitType = 22
	HeroEdmundDukeTankMode     UnitType = 23
	HeroEdmundDukeSiegeMode    UnitType = 25
	HeroArcturusMengsk         UnitType = 27
	HeroHyperion               UnitType = 28
	HeroNoradII                UnitType = 29
	TerranSiegeTankSiegeMode   UnitType = 30
	TerranSiegeTankSiegeTurret UnitType = 31
	TerranFirebat              UnitType = 32
	TerranMedic                UnitType = 34
	ZergLarva                  UnitType = 35
	ZergEgg                    UnitType = 36
	ZergZergling               UnitType = 37
	ZergHydralisk              UnitType = 38
	ZergUltralisk              UnitType = 39
	ZergBroodling              UnitType = 40
	ZergDrone                  UnitType = 41
	ZergOverlord               UnitType = 42
	ZergMutalisk               UnitType = 43
	ZergGuardian               UnitType = 44
	ZergQueen                  UnitType = 45
	ZergDefiler                UnitType = 46
	ZergScourge                UnitType = 47
	HeroTorrasque              UnitType = 48
	HeroMatriarch              UnitType = 49
	ZergInfestedTerran         UnitType = 50
	HeroInfestedKerrigan       UnitType = 51
	HeroUncleanOne             UnitType = 52
	HeroHunterKiller           UnitType = 53
	HeroDevouringOne           UnitType = 54
	HeroKukulzaMutalisk        UnitType = 55
	HeroKukulzaGuardian        UnitType = 56
	HeroYggdrasill             UnitType = 57
	TerranValkyrie             UnitType = 58
	ZergCocoon                 UnitType = 59
	ProtossCorsair             UnitType = 60
	ProtossDarkTemplar         UnitType = 61
	ZergDevourer               UnitType = 62
	ProtossDarkArchon          UnitType = 63
	ProtossProbe               UnitType = 64
	ProtossZealot              UnitType = 65
	ProtossDragoon             UnitType = 66
	ProtossHighTemplar         UnitType = 67
	ProtossArchon              UnitType = 68
	ProtossShuttle             UnitType = 69
	ProtossScout               UnitType = 70
	ProtossArbiter             UnitType = 71
	ProtossCarrier             UnitType = 72
	ProtossInterceptor         UnitType = 73
	HeroDarkTemplar            UnitType = 74
	HeroZeratul                UnitType = 75
	HeroTassadarZeratulArchon  UnitType = 76
	HeroFenixZealot            UnitType = 77
	HeroFenixDragoon           UnitType = 78
	HeroTassadar               UnitType = 79
	HeroMojo                   UnitType = 80
	HeroWarbringer             UnitType = 81
	HeroGantrithor             UnitType = 82
	ProtossReaver              UnitType = 83
	ProtossObserver            UnitType = 84
	ProtossScarab              UnitType = 85
	HeroDanimoth               UnitType = 86
	HeroAldaris                UnitType = 87
	HeroArtanis                UnitType = 88
	ZergLurkerEgg              UnitType = 97
	HeroRaszagal               UnitType = 98
	HeroSamirDuran             UnitType = 99
	HeroAlexeiStukov           UnitType = 100
	HeroGerardDuGalle          UnitType = 102
	ZergLurker                 UnitType = 103
	HeroInfestedDuran          UnitType = 104

	TerranCommandCenter       UnitType = 106
	TerranComsatStation       UnitType = 107
	TerranNuclearSilo         UnitType = 108
	TerranSupplyDepot         UnitType = 109
	TerranRefinery            UnitType = 110
	TerranBarracks            UnitType = 111
	TerranAcademy             UnitType = 112
	TerranFactory             UnitType = 113
	TerranStarport            UnitType = 114
	TerranControlTower        UnitType = 115
	TerranScienceFacility     UnitType = 116
	TerranCovertOps           UnitType = 117
	TerranPhysicsLab          UnitType = 118
	TerranMachineShop         UnitType = 120
	TerranEngineeringBay      UnitType = 122
	TerranArmory              UnitType = 123
	TerranMissileTurret       UnitType = 124
	TerranBunker              UnitType = 125
	ZergInfestedCommandCenter UnitType = 130
	ZergHatchery              UnitType = 131
	ZergLair                  UnitType = 132
	ZergHive                  UnitType = 133
	ZergNydusCanal            UnitType = 134
	ZergHydraliskDen          UnitType = 135
	ZergDefilerMound          UnitType = 136
	ZergGreaterSpire          UnitType = 137
	ZergQueensNest            UnitType = 138
	ZergEvolutionChamber      UnitType = 139
	ZergUltraliskCavern       UnitType = 140
	ZergSpire                 UnitType = 141
	ZergSpawningPool          UnitType = 142
	ZergCreepColony           UnitType = 143
	ZergSporeColony           UnitType = 144
	ZergSunkenColony          UnitType = 146
	ZergExtractor             UnitType = 149
	ProtossNexus              UnitType = 154
	ProtossRoboticsFacility   UnitType = 155
	ProtossPylon              UnitType = 156
	ProtossAssimilator        UnitType = 157
	ProtossObservatory        UnitType = 159
	ProtossGateway            UnitType = 160
	ProtossPhotonCannon       UnitType = 162
	ProtossCitadelOfAdun      UnitType = 163
	ProtossCyberneticsCore    UnitType = 164
	ProtossTemplarArchives    UnitType = 165
	ProtossForge              UnitType = 166
	ProtossStargate           UnitType = 167
	ProtossFleetBeacon        UnitType = 169
	ProtossArbiterTribunal    UnitType = 170
	ProtossRoboticsSupportBay UnitType = 171
	ProtossShieldBattery      UnitType = 172

	// None marks an unused slot of the unit array and an empty production queue entry.
	None UnitType = 228
	// AllUnits is the pseudo-type that aggregates every concrete type in counts.
	AllUnits UnitType = 229
)

// Race of a unit type.
type Race uint8

const (
	RaceNone Race = iota
	Terran
	Zerg
	Protoss
)

var raceNames = [...]string{RaceNone: "none", Terran: "terran", Zerg: "zerg", Protoss: "protoss"}

func (r Race) String() string {
	if int(r) < len(raceNames) {
		return raceNames[r]
	}
	return "race(" + strconv.Itoa(int(r)) + ")"
}

// Races lists the playable races.
var Races = []Race{Terran, Zerg, Protoss}

// ParseRace accepts race names in any case.
func ParseRace(s string) (Race, error) {
	for _, r := range Races {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return RaceNone, fmt.Errorf("unknown race %q", s)
}

// Category is a static classification over unit types.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryWorker
	CategoryBuilding
	CategoryCombat
	CategoryHero
)

var categoryNames = [...]string{
	CategoryOther:    "other",
	CategoryWorker:   "worker",
	CategoryBuilding: "building",
	CategoryCombat:   "combat",
	CategoryHero:     "hero",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "category(" + strconv.Itoa(int(c)) + ")"
}

// ParseCategory accepts category names in any case.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return Category(i), nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown category %q", s)
}

type unitInfo struct {
	name     string
	race     Race
	category Category
}

// catalog of the unit types this module classifies. Types not listed are CategoryOther.
var unitInfos = map[UnitType]unitInfo{
	TerranMarine:               {"Terran_Marine", Terran, CategoryCombat},
	TerranGhost:                {"Terran_Ghost", Terran, CategoryCombat},
	TerranVulture:              {"Terran_Vulture", Terran, CategoryCombat},
	TerranGoliath:              {"Terran_Goliath", Terran, CategoryCombat},
	TerranGoliathTurret:        {"Terran_Goliath_Turret", Terran, CategoryOther},
	TerranSiegeTankTankMode:    {"Terran_Siege_Tank_Tank_Mode", Terran, CategoryCombat},
	TerranSiegeTankTankTurret:  {"Terran_Siege_Tank_Tank_Mode_Turret", Terran, CategoryOther},
	TerranSCV:                  {"Terran_SCV", Terran, CategoryWorker},
	TerranWraith:               {"Terran_Wraith", Terran, CategoryCombat},
	TerranScienceVessel:        {"Terran_Science_Vessel", Terran, CategoryCombat},
	HeroGuiMontag:              {"Hero_Gui_Montag", Terran, CategoryHero},
	TerranDropship:             {"Terran_Dropship", Terran, CategoryCombat},
	TerranBattlecruiser:        {"Terran_Battlecruiser", Terran, CategoryCombat},
	TerranVultureSpiderMine:    {"Terran_Vulture_Spider_Mine", Terran, CategoryOther},
	TerranNuclearMissile:       {"Terran_Nuclear_Missile", Terran, CategoryOther},
	TerranCivilian:             {"Terran_Civilian", Terran, CategoryOther},
	HeroSarahKerrigan:          {"Hero_Sarah_Kerrigan", Terran, CategoryHero},
	HeroAlanSchezar:            {"Hero_Alan_Schezar", Terran, CategoryHero},
	HeroJimRaynorVulture:       {"Hero_Jim_Raynor_Vulture", Terran, CategoryHero},
	HeroJimRaynorMarine:        {"Hero_Jim_Raynor_Marine", Terran, CategoryHero},
	HeroTomKazansky:            {"Hero_Tom_Kazansky", Terran, CategoryHero},
	HeroMagellan:               {"Hero_Magellan", Terran, CategoryHero},
	HeroEdmundDukeTankMode:     {"Hero_Edmund_Duke_Tank_Mode", Terran, CategoryHero},
	HeroEdmundDukeSiegeMode:    {"Hero_Edmund_Duke_Siege_Mode", Terran, CategoryHero},
	HeroArcturusMengsk:         {"Hero_Arcturus_Mengsk", Terran, CategoryHero},
	HeroHyperion:               {"Hero_Hyperion", Terran, CategoryHero},
	HeroNoradII:                {"Hero_Norad_II", Terran, CategoryHero},
	TerranSiegeTankSiegeMode:   {"Terran_Siege_Tank_Siege_Mode", Terran, CategoryCombat},
	TerranSiegeTankSiegeTurret: {"Terran_Siege_Tank_Siege_Mode_Turret", Terran, CategoryOther},
	TerranFirebat:              {"Terran_Firebat", Terran, CategoryCombat},
	TerranMedic:                {"Terran_Medic", Terran, CategoryCombat},
	ZergLarva:                  {"Zerg_Larva", Zerg, CategoryOther},
	ZergEgg:                    {"Zerg_Egg", Zerg, CategoryOther},
	ZergZergling:               {"Zerg_Zergling", Zerg, CategoryCombat},
	ZergHydralisk:              {"Zerg_Hydralisk", Zerg, CategoryCombat},
	ZergUltralisk:              {"Zerg_Ultralisk", Zerg, CategoryCombat},
	ZergBroodling:              {"Zerg_Broodling", Zerg, CategoryCombat},
	ZergDrone:                  {"Zerg_Drone", Zerg, CategoryWorker},
	ZergOverlord:               {"Zerg_Overlord", Zerg, CategoryCombat},
	ZergMutalisk:               {"Zerg_Mutalisk", Zerg, CategoryCombat},
	ZergGuardian:               {"Zerg_Guardian", Zerg, CategoryCombat},
	ZergQueen:                  {"Zerg_Queen", Zerg, CategoryCombat},
	ZergDefiler:                {"Zerg_Defiler", Zerg, CategoryCombat},
	ZergScourge:                {"Zerg_Scourge", Zerg, CategoryCombat},
	HeroTorrasque:              {"Hero_Torrasque", Zerg, CategoryHero},
	HeroMatriarch:              {"Hero_Matriarch", Zerg, CategoryHero},
	ZergInfestedTerran:         {"Zerg_Infested_Terran", Zerg, CategoryCombat},
	HeroInfestedKerrigan:       {"Hero_Infested_Kerrigan", Zerg, CategoryHero},
	HeroUncleanOne:             {"Hero_Unclean_One", Zerg, CategoryHero},
	HeroHunterKiller:           {"Hero_Hunter_Killer", Zerg, CategoryHero},
	HeroDevouringOne:           {"Hero_Devouring_One", Zerg, CategoryHero},
	HeroKukulzaMutalisk:        {"Hero_Kukulza_Mutalisk", Zerg, CategoryHero},
	HeroKukulzaGuardian:        {"Hero_Kukulza_Guardian", Zerg, CategoryHero},
	HeroYggdrasill:             {"Hero_Yggdrasill", Zerg, CategoryHero},
	TerranValkyrie:             {"Terran_Valkyrie", Terran, CategoryCombat},
	ZergCocoon:                 {"Zerg_Cocoon", Zerg, CategoryOther},
	ProtossCorsair:             {"Protoss_Corsair", Protoss, CategoryCombat},
	ProtossDarkTemplar:         {"Protoss_Dark_Templar", Protoss, CategoryCombat},
	ZergDevourer:               {"Zerg_Devourer", Zerg, CategoryCombat},
	ProtossDarkArchon:          {"Protoss_Dark_Archon", Protoss, CategoryCombat},
	ProtossProbe:               {"Protoss_Probe", Protoss, CategoryWorker},
	ProtossZealot:              {"Protoss_Zealot", Protoss, CategoryCombat},
	ProtossDragoon:             {"Protoss_Dragoon", Protoss, CategoryCombat},
	ProtossHighTemplar:         {"Protoss_High_Templar", Protoss, CategoryCombat},
	ProtossArchon:              {"Protoss_Archon", Protoss, CategoryCombat},
	ProtossShuttle:             {"Protoss_Shuttle", Protoss, CategoryCombat},
	ProtossScout:               {"Protoss_Scout", Protoss, CategoryCombat},
	ProtossArbiter:             {"Protoss_Arbiter", Protoss, CategoryCombat},
	ProtossCarrier:             {"Protoss_Carrier", Protoss, CategoryCombat},
	ProtossInterceptor:         {"Protoss_Interceptor", Protoss, CategoryOther},
	HeroDarkTemplar:            {"Hero_Dark_Templar", Protoss, CategoryHero},
	HeroZeratul:                {"Hero_Zeratul", Protoss, CategoryHero},
	HeroTassadarZeratulArchon:  {"Hero_Tassadar_Zeratul_Archon", Protoss, CategoryHero},
	HeroFenixZealot:            {"Hero_Fenix_Zealot", Protoss, CategoryHero},
	HeroFenixDragoon:           {"Hero_Fenix_Dragoon", Protoss, CategoryHero},
	HeroTassadar:               {"Hero_Tassadar", Protoss, CategoryHero},
	HeroMojo:                   {"Hero_Mojo", Protoss, CategoryHero},
	HeroWarbringer:             {"Hero_Warbringer", Protoss, CategoryHero},
	HeroGantrithor:             {"Hero_Gantrithor", Protoss, CategoryHero},
	ProtossReaver:              {"Protoss_Reaver", Protoss, CategoryCombat},
	ProtossObserver:            {"Protoss_Observer", Protoss, CategoryCombat},
	ProtossScarab:              {"Protoss_Scarab", Protoss, CategoryOther},
	HeroDanimoth:               {"Hero_Danimoth", Protoss, CategoryHero},
	HeroAldaris:                {"Hero_Aldaris", Protoss, CategoryHero},
	HeroArtanis:                {"Hero_Artanis", Protoss, CategoryHero},
	ZergLurkerEgg:              {"Zerg_Lurker_Egg", Zerg, CategoryOther},
	HeroRaszagal:               {"Hero_Raszagal", Protoss, CategoryHero},
	HeroSamirDuran:             {"Hero_Samir_Duran", Terran, CategoryHero},
	HeroAlexeiStukov:           {"Hero_Alexei_Stukov", Terran, CategoryHero},
	HeroGerardDuGalle:          {"Hero_Gerard_DuGalle", Terran, CategoryHero},
	ZergLurker:                 {"Zerg_Lurker", Zerg, CategoryCombat},
	HeroInfestedDuran:          {"Hero_Infested_Duran", Zerg, CategoryHero},

	TerranCommandCenter:       {"Terran_Command_Center", Terran, CategoryBuilding},
	TerranComsatStation:       {"Terran_Comsat_Station", Terran, CategoryBuilding},
	TerranNuclearSilo:         {"Terran_Nuclear_Silo", Terran, CategoryBuilding},
	TerranSupplyDepot:         {"Terran_Supply_Depot", Terran, CategoryBuilding},
	TerranRefinery:            {"Terran_Refinery", Terran, CategoryBuilding},
	TerranBarracks:            {"Terran_Barracks", Terran, CategoryBuilding},
	TerranAcademy:             {"Terran_Academy", Terran, CategoryBuilding},
	TerranFactory:             {"Terran_Factory", Terran, CategoryBuilding},
	TerranStarport:            {"Terran_Starport", Terran, CategoryBuilding},
	TerranControlTower:        {"Terran_Control_Tower", Terran, CategoryBuilding},
	TerranScienceFacility:     {"Terran_Science_Facility", Terran, CategoryBuilding},
	TerranCovertOps:           {"Terran_Covert_Ops", Terran, CategoryBuilding},
	TerranPhysicsLab:          {"Terran_Physics_Lab", Terran, CategoryBuilding},
	TerranMachineShop:         {"Terran_Machine_Shop", Terran, CategoryBuilding},
	TerranEngineeringBay:      {"Terran_Engineering_Bay", Terran, CategoryBuilding},
	TerranArmory:              {"Terran_Armory", Terran, CategoryBuilding},
	TerranMissileTurret:       {"Terran_Missile_Turret", Terran, CategoryBuilding},
	TerranBunker:              {"Terran_Bunker", Terran, CategoryBuilding},
	ZergInfestedCommandCenter: {"Zerg_Infested_Command_Center", Zerg, CategoryBuilding},
	ZergHatchery:              {"Zerg_Hatchery", Zerg, CategoryBuilding},
	ZergLair:                  {"Zerg_Lair", Zerg, CategoryBuilding},
	ZergHive:                  {"Zerg_Hive", Zerg, CategoryBuilding},
	ZergNydusCanal:            {"Zerg_Nydus_Canal", Zerg, CategoryBuilding},
	ZergHydraliskDen:          {"Zerg_Hydralisk_Den", Zerg, CategoryBuilding},
	ZergDefilerMound:          {"Zerg_Defiler_Mound", Zerg, CategoryBuilding},
	ZergGreaterSpire:          {"Zerg_Greater_Spire", Zerg, CategoryBuilding},
	ZergQueensNest:            {"Zerg_Queens_Nest", Zerg, CategoryBuilding},
	ZergEvolutionChamber:      {"Zerg_Evolution_Chamber", Zerg, CategoryBuilding},
	ZergUltraliskCavern:       {"Zerg_Ultralisk_Cavern", Zerg, CategoryBuilding},
	ZergSpire:                 {"Zerg_Spire", Zerg, CategoryBuilding},
	ZergSpawningPool:          {"Zerg_Spawning_Pool", Zerg, CategoryBuilding},
	ZergCreepColony:           {"Zerg_Creep_Colony", Zerg, CategoryBuilding},
	ZergSporeColony:           {"Zerg_Spore_Colony", Zerg, CategoryBuilding},
	ZergSunkenColony:          {"Zerg_Sunken_Colony", Zerg, CategoryBuilding},
	ZergExtractor:             {"Zerg_Extractor", Zerg, CategoryBuilding},
	ProtossNexus:              {"Protoss_Nexus", Protoss, CategoryBuilding},
	ProtossRoboticsFacility:   {"Protoss_Robotics_Facility", Protoss, CategoryBuilding},
	ProtossPylon:              {"Protoss_Pylon", Protoss, CategoryBuilding},
	ProtossAssimilator:        {"Protoss_Assimilator", Protoss, CategoryBuilding},
	ProtossObservatory:        {"Protoss_Observatory", Protoss, CategoryBuilding},
	ProtossGateway:            {"Protoss_Gateway", Protoss, CategoryBuilding},
	ProtossPhotonCannon:       {"Protoss_Photon_Cannon", Protoss, CategoryBuilding},
	ProtossCitadelOfAdun:      {"Protoss_Citadel_of_Adun", Protoss, CategoryBuilding},
	ProtossCyberneticsCore:    {"Protoss_Cybernetics_Core", Protoss, CategoryBuilding},
	ProtossTemplarArchives:    {"Protoss_Templar_Archives", Protoss, CategoryBuilding},
	ProtossForge:              {"Protoss_Forge", Protoss, CategoryBuilding},
	ProtossStargate:           {"Protoss_Stargate", Protoss, CategoryBuilding},
	ProtossFleetBeacon:        {"Protoss_Fleet_Beacon", Protoss, CategoryBuilding},
	ProtossArbiterTribunal:    {"Protoss_Arbiter_Tribunal", Protoss, CategoryBuilding},
	ProtossRoboticsSupportBay: {"Protoss_Robotics_Support_Bay", Protoss, CategoryBuilding},
	ProtossShieldBattery:      {"Protoss_Shield_Battery", Protoss, CategoryBuilding},

	None:     {"None", RaceNone, CategoryOther},
	AllUnits: {"AllUnits", RaceNone, CategoryOther},
}

var unitTypesByName = func() map[string]UnitType {
	m := make(map[string]UnitType, len(unitInfos))
	for t, info := range unitInfos {
		m[strings.ToLower(info.name)] = t
	}
	return m
}()

func (t UnitType) String() string {
	if info, ok := unitInfos[t]; ok {
		return info.name
	}
	return "UnitType(" + strconv.Itoa(int(t)) + ")"
}

// IsConcrete reports whether t names a real unit rather than None or AllUnits.
func (t UnitType) IsConcrete() bool {
	return t < None
}

// ParseUnitType accepts a name such as "Terran_Marine" in any case, or a decimal id.
func ParseUnitType(s string) (UnitType, error) {
	if t, ok := unitTypesByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return None, fmt.Errorf("unknown unit type %q", s)
	}
	return UnitType(n), nil
}

func RaceOf(t UnitType) Race {
	return unitInfos[t].race
}

func CategoryOf(t UnitType) Category {
	return unitInfos[t].category
}

func IsWorker(t UnitType) bool {
	return CategoryOf(t) == CategoryWorker
}

func IsBuilding(t UnitType) bool {
	return CategoryOf(t) == CategoryBuilding
}

func IsHero(t UnitType) bool {
	return CategoryOf(t) == CategoryHero
}
