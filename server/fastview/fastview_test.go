package fastview

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"testing"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

// textView sets the text of a single element to each view-model it receives.
type textView struct {
	id      string
	updates <-chan []EleUpdate
}

func newTextView(id string, done <-chan struct{}, models <-chan string) *textView {
	tv := &textView{id: id}
	tv.updates = channerics.Convert(done, models, func(s string) []EleUpdate {
		return []EleUpdate{{EleId: tv.id, Ops: []Op{{Key: TextContent, Value: s}}}}
	})
	return tv
}

func (tv *textView) Updates() <-chan []EleUpdate {
	return tv.updates
}

func (tv *textView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "` + tv.id + `" }}<p id="` + tv.id + `">{{ . }}</p>{{ end }}`)
	return tv.id, err
}

func receive(updates <-chan []EleUpdate) []EleUpdate {
	select {
	case u := <-updates:
		return u
	case <-time.After(time.Second):
		return nil
	}
}

func TestViewBuilder(t *testing.T) {
	Convey("Given a view builder", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		input := make(chan int)

		Convey("Every view receives every converted view-model", func() {
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(input, func(x int) string { return fmt.Sprintf("value %d", x) }).
				WithView(func(done <-chan struct{}, models <-chan string) ViewComponent {
					return newTextView("first", done, models)
				}).
				WithView(func(done <-chan struct{}, models <-chan string) ViewComponent {
					return newTextView("second", done, models)
				}).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 2)

			go func() { input <- 7 }()

			// Broadcast delivers to each view in turn, so drain them concurrently.
			results := make(chan []EleUpdate, 2)
			for _, view := range views {
				go func(v ViewComponent) { results <- receive(v.Updates()) }(view)
			}
			seen := map[string]string{}
			for i := 0; i < 2; i++ {
				updates := <-results
				So(len(updates), ShouldEqual, 1)
				seen[updates[0].EleId] = updates[0].Ops[0].Value
			}
			So(seen, ShouldResemble, map[string]string{
				"first":  "value 7",
				"second": "value 7",
			})

			Convey("And views parse into a parent template", func() {
				parent := template.New("parent")
				name, err := views[0].Parse(parent)
				So(err, ShouldBeNil)
				So(parent.Lookup(name), ShouldNotBeNil)
			})
		})

		Convey("Building without views fails", func() {
			_, err := NewViewBuilder[int, string]().
				WithModel(input, func(x int) string { return "" }).
				Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("A view func that builds nothing fails the build", func() {
			_, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(input, func(x int) string { return "" }).
				WithView(func(done <-chan struct{}, models <-chan string) ViewComponent {
					return nil
				}).
				Build()
			So(errors.Is(err, ErrNilView), ShouldBeTrue)
		})

		Convey("Building without a model fails", func() {
			_, err := NewViewBuilder[int, string]().
				WithView(func(done <-chan struct{}, models <-chan string) ViewComponent {
					return newTextView("only", done, models)
				}).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})
	})
}
