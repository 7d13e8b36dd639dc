package cell_views

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"cleanbot/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

const (
	traceWidth  = 600
	traceHeight = 200
)

// RewardTrace plots the most recent training episode rewards as a polyline, along with
// the experiment's progress and latest validation reward.
type RewardTrace struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewRewardTrace(
	done <-chan struct{},
	frames <-chan Frame,
) (rt *RewardTrace) {
	rt = &RewardTrace{id: "rewardtrace"}
	rt.updates = channerics.Convert(done, frames, rt.onUpdate)
	return
}

func (rt *RewardTrace) Updates() <-chan []fastview.EleUpdate {
	return rt.updates
}

// tracePoints maps rewards to svg polyline points. The y-axis spans the range of the
// rewards, with the highest reward at the top.
func tracePoints(rewards []float64) string {
	if len(rewards) == 0 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rewards {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	dx := float64(traceWidth)
	if len(rewards) > 1 {
		dx = float64(traceWidth) / float64(len(rewards)-1)
	}

	var sb strings.Builder
	for i, r := range rewards {
		y := float64(traceHeight) / 2
		if hi > lo {
			y = float64(traceHeight) * (hi - r) / (hi - lo)
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d,%d", int(float64(i)*dx), int(y))
	}
	return sb.String()
}

func progressText(frame Frame) string {
	if frame.Experiment == "" {
		return "waiting for training"
	}
	return fmt.Sprintf("%s: episode %d of %d", frame.Experiment, frame.Episode, frame.Episodes)
}

func validationText(frame Frame) string {
	return fmt.Sprintf("validation avg reward %.3f", frame.ValidationAvgReward)
}

func (rt *RewardTrace) onUpdate(frame Frame) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		{
			EleId: rt.id + "-progress",
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: progressText(frame)}},
		},
		{
			EleId: rt.id + "-validation",
			Ops:   []fastview.Op{{Key: fastview.TextContent, Value: validationText(frame)}},
		},
		{
			EleId: rt.id + "-line",
			Ops:   []fastview.Op{{Key: "points", Value: tracePoints(frame.Rewards)}},
		},
	}
}

func (rt *RewardTrace) Parse(
	t *template.Template,
) (name string, err error) {
	name = rt.id
	addedMap := template.FuncMap{
		"tracePoints":    tracePoints,
		"progressText":   progressText,
		"validationText": validationText,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div>
			<h3 id="` + rt.id + `-progress">{{ progressText . }}</h3>
			<p id="` + rt.id + `-validation">{{ validationText . }}</p>
			<svg id="` + rt.id + `" xmlns='http://www.w3.org/2000/svg'
				width="` + fmt.Sprint(traceWidth) + `px"
				height="` + fmt.Sprint(traceHeight) + `px"
				style="border: 1px solid lightgrey;">
				<polyline id="` + rt.id + `-line" fill="none" stroke="blue" stroke-width="1"
					points="{{ tracePoints .Rewards }}" />
			</svg>
		</div>
		{{ end }}`)
	return
}
