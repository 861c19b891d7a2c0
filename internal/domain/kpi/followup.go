package kpi

import (
	"github.com/samber/lo"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/internal/domain/types"
)

func computeFollowUp(in *input) types.FollowUp {
	followed := in.parts.subjectIDs(model.FollowUpSet, nil)
	sold := in.parts.subjectIDs(model.SaleRecorded, nil)
	converted := lo.Intersect(followed, sold)

	return types.FollowUp{
		LeadsWithFollowUp:        len(followed),
		LeadsWithFollowUpAndSale: len(converted),
		ConversionPct:            Percent(len(converted), len(followed)),
	}
}
