package interaction

// Stage is a step of a segmentation cycle.
type Stage int

// The stages in the order a cycle runs them.
const (
	StageCapture Stage = iota
	StageExtract
	StageDenoise1
	StagePlaneEstimate
	StageGrow
	StageDenoise2
	StageExport
	StageBoundary
	StagePublish
	StageIdle
)

var stageNames = [...]string{
	StageCapture:       "capture",
	StageExtract:       "extract",
	StageDenoise1:      "denoise1",
	StagePlaneEstimate: "plane_estimate",
	StageGrow:          "grow",
	StageDenoise2:      "denoise2",
	StageExport:        "export",
	StageBoundary:      "boundary",
	StagePublish:       "publish",
	StageIdle:          "idle",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
