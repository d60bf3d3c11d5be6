package model

import (
	"fmt"
	"strings"
)

type NeedType uint8

const (
	NeedSleep NeedType = iota
	NeedHunger
	NeedWarmth

	NeedCount = 3
)

var needNames = [NeedCount]string{"Sleep", "Hunger", "Warmth"}

func (n NeedType) String() string {
	if int(n) < NeedCount {
		return needNames[n]
	}
	return fmt.Sprintf("Need(%d)", uint8(n))
}

func ParseNeed(s string) (NeedType, error) {
	for i, name := range needNames {
		if strings.EqualFold(s, name) {
			return NeedType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown need %q", s)
}

func AllNeeds() []NeedType { return []NeedType{NeedSleep, NeedHunger, NeedWarmth} }

type StationType uint8

const (
	StationWood StationType = iota
	StationBed
	StationPot
	StationFire

	StationCount = 4
)

var stationNames = [StationCount]string{"Wood", "Bed", "Pot", "Fire"}

func (s StationType) String() string {
	if int(s) < StationCount {
		return stationNames[s]
	}
	return fmt.Sprintf("Station(%d)", uint8(s))
}

func ParseStation(s string) (StationType, error) {
	for i, name := range stationNames {
		if strings.EqualFold(s, name) {
			return StationType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown station %q", s)
}

// StationFor maps a need to the facility that restores it.
func StationFor(n NeedType) StationType {
	switch n {
	case NeedSleep:
		return StationBed
	case NeedHunger:
		return StationPot
	default:
		return StationFire
	}
}
