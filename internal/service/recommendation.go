package service

import (
	"math"

	"github.com/adr-causality-server/internal/domain"
)

// roundingEpsilon absorbs float error so an exact .5 always rounds up.
const roundingEpsilon = 1e-9

// BlendRecommendation combines the WHO-UMC and Naranjo levels into one ordinal level
// using a weighted average of their ordinal indices, rounded half-up.
// Administrative WHO categories enter the blend as UNLIKELY.
func BlendRecommendation(who domain.WHOLevel, naranjo domain.CausalityLevel, policy domain.CausalityPolicy) (domain.CausalityLevel, error) {
	whoOrdinal, err := who.Ordinal()
	if err != nil {
		return "", domain.NewInternalError("blend: %v", err)
	}
	whoIndex, err := whoOrdinal.Index()
	if err != nil {
		return "", domain.NewInternalError("blend: %v", err)
	}
	naranjoIndex, err := naranjo.Index()
	if err != nil {
		return "", domain.NewInternalError("blend: %v", err)
	}

	weighted := policy.WHOWeight*float64(whoIndex) + policy.NaranjoWeight*float64(naranjoIndex)
	index := roundHalfUp(weighted)

	level, err := domain.CausalityLevelAt(index)
	if err != nil {
		return "", domain.NewInternalError("blend: weighted index %.3f: %v", weighted, err)
	}
	return level, nil
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5 + roundingEpsilon))
}

// levelsAgree compares the WHO and Naranjo levels on the shared four-level scale.
func levelsAgree(who domain.WHOLevel, naranjo domain.CausalityLevel) (bool, error) {
	whoOrdinal, err := who.Ordinal()
	if err != nil {
		return false, domain.NewInternalError("agreement: %v", err)
	}
	return whoOrdinal == naranjo, nil
}
