package pipeline

import (
	"context"
	"errors"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/internal/schema"
	"github.com/sgratzl/lineup-if-fi/internal/session"
)

// Step identifiers
const (
	StepNormalize        = "normalize"
	StepDescribeItems    = "describe_items"
	StepTranspose        = "transpose"
	StepDescribeFeatures = "describe_features"
	StepDeriveColors     = "derive_colors"
	StepBuildViews       = "build_views"
)

var errNoDataset = errors.New("no dataset loaded")

// DefaultSteps returns the load pipeline in execution order
func DefaultSteps() []Step {
	return []Step{
		&normalizeStep{BaseStep: NewBaseStep(StepNormalize, "Normalize values")},
		&describeItemsStep{BaseStep: NewBaseStep(StepDescribeItems, "Describe items")},
		&transposeStep{BaseStep: NewBaseStep(StepTranspose, "Transpose to features")},
		&describeFeaturesStep{BaseStep: NewBaseStep(StepDescribeFeatures, "Describe features")},
		&deriveColorsStep{BaseStep: NewBaseStep(StepDeriveColors, "Derive colors")},
		&buildViewsStep{BaseStep: NewBaseStep(StepBuildViews, "Build linked views")},
	}
}

type normalizeStep struct {
	BaseStep
}

func (s *normalizeStep) Execute(ctx context.Context, state *State) error {
	if state.Raw == nil {
		return errNoDataset
	}
	items, err := schema.Normalize(state.Raw)
	if err != nil {
		return err
	}
	state.Items = items
	return nil
}

// describeItemsStep derives the item description, or backfills a supplied one
type describeItemsStep struct {
	BaseStep
}

func (s *describeItemsStep) Execute(ctx context.Context, state *State) error {
	if state.Supplied != nil {
		desc, err := schema.Apply(*state.Supplied, state.Items)
		if err != nil {
			return err
		}
		state.ItemDescription = desc
		return nil
	}
	state.ItemDescription = schema.Derive(state.Items.Columns(), state.Items)
	return nil
}

type transposeStep struct {
	BaseStep
}

func (s *transposeStep) Execute(ctx context.Context, state *State) error {
	features, err := dataset.Transpose(state.Items)
	if err != nil {
		return err
	}
	state.Features = features
	return nil
}

type describeFeaturesStep struct {
	BaseStep
}

func (s *describeFeaturesStep) Execute(ctx context.Context, state *State) error {
	state.FeatureDescription = schema.Derive(state.Features.Columns(), state.Features)
	return nil
}

type deriveColorsStep struct {
	BaseStep
}

func (s *deriveColorsStep) Execute(ctx context.Context, state *State) error {
	state.ItemDescription.Columns = schema.DeriveColors(state.ItemDescription.Columns)
	state.FeatureDescription.Columns = schema.DeriveColors(state.FeatureDescription.Columns)
	return nil
}

type buildViewsStep struct {
	BaseStep
}

func (s *buildViewsStep) Execute(ctx context.Context, state *State) error {
	state.ItemView = session.NewView(session.SideItems, state.Items, state.ItemDescription)
	state.FeatureView = session.NewView(session.SideFeatures, state.Features, state.FeatureDescription)
	return nil
}
