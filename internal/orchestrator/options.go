package orchestrator

import (
	"mosaic/internal/engine"
	"mosaic/internal/stage"
	"mosaic/internal/store"
)

// mergedStageOptions builds the option list for a fresh stage run: quality
// profile defaults overlaid with the job's own options for the stage.
func mergedStageOptions(job *store.Job, s stage.Stage) []engine.Option {
	return optionList(stage.MergeOptions(job.Quality, s, job.StepOptions(s)))
}

// jobStageOptions builds the option list for resuming the current stage,
// which replays only the job's own options for it.
func jobStageOptions(job *store.Job, s stage.Stage) []engine.Option {
	return optionList(job.StepOptions(s))
}

func optionList(options map[string]any) []engine.Option {
	list := make([]engine.Option, 0, len(options))
	for _, name := range stage.SortedOptionNames(options) {
		list = append(list, engine.Option{Name: name, Value: options[name]})
	}
	return list
}
