package fastview

import (
	"context"
	"errors"
	"fmt"

	channerics "github.com/niceyeti/channerics/channels"
)

var (
	ErrNoViews = errors.New("no views to build: WithView must be called")
	ErrNoModel = errors.New("no model specified: WithModel must be called")
	ErrNilView = errors.New("view func built no view")
)

// ViewBuilderFunc builds a view fed by models. The view must stop when done is closed.
type ViewBuilderFunc[ViewModel any] func(done <-chan struct{}, models <-chan ViewModel) ViewComponent

// ViewBuilder fans one stream of data-models out to several views, each of which sees
// every data-model after conversion to the shared view-model. A slow view holds up the
// rest, so views should keep their own work per view-model small.
type ViewBuilder[DataModel any, ViewModel any] struct {
	input   <-chan DataModel
	convert func(DataModel) ViewModel
	views   []ViewBuilderFunc[ViewModel]
	// nil until WithContext; the views then run until the input closes
	done <-chan struct{}
}

func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the data-model input and its conversion to view-models.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.input = input
	vb.convert = convert
	return vb
}

// WithView appends a view; Build returns views in the order they were added.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	view ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.views = append(vb.views, view)
	return vb
}

// WithContext stops the conversion and every view once ctx is done.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// Build starts the conversion and wires one broadcast output to each view.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() ([]ViewComponent, error) {
	switch {
	case len(vb.views) == 0:
		return nil, ErrNoViews
	case vb.input == nil || vb.convert == nil:
		return nil, ErrNoModel
	}

	models := channerics.Convert(vb.done, vb.input, vb.convert)
	outputs := channerics.Broadcast(vb.done, models, len(vb.views))

	built := make([]ViewComponent, 0, len(vb.views))
	for i, view := range vb.views {
		component := view(vb.done, outputs[i])
		if component == nil {
			return nil, fmt.Errorf("view %d: %w", i, ErrNilView)
		}
		built = append(built, component)
	}
	return built, nil
}
