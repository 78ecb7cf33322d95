package domain

type ShotType string

const (
	ShotExtremeWide     ShotType = "extreme-wide"
	ShotWide            ShotType = "wide"
	ShotFull            ShotType = "full"
	ShotMedium          ShotType = "medium"
	ShotMediumCloseUp   ShotType = "medium-close-up"
	ShotCloseUp         ShotType = "close-up"
	ShotExtremeCloseUp  ShotType = "extreme-close-up"
	ShotOverTheShoulder ShotType = "over-the-shoulder"
	ShotPOV             ShotType = "pov"
	ShotInsert          ShotType = "insert"
)

const DefaultShotType = ShotMedium

type CameraAngle string

const (
	AngleEyeLevel CameraAngle = "eye-level"
	AngleHigh     CameraAngle = "high-angle"
	AngleLow      CameraAngle = "low-angle"
	AngleBirdEye  CameraAngle = "bird-eye"
	AngleWormEye  CameraAngle = "worm-eye"
	AngleDutch    CameraAngle = "dutch-angle"
)

const DefaultCameraAngle = AngleEyeLevel

type Movement string

const (
	MoveStatic    Movement = "static"
	MovePan       Movement = "pan"
	MoveTilt      Movement = "tilt"
	MoveDolly     Movement = "dolly"
	MoveTracking  Movement = "tracking"
	MoveCrane     Movement = "crane"
	MoveHandheld  Movement = "handheld"
	MoveZoom      Movement = "zoom"
	MoveSteadicam Movement = "steadicam"
)

const DefaultMovement = MoveStatic

var (
	ShotTypes = []ShotType{
		ShotExtremeWide, ShotWide, ShotFull, ShotMedium, ShotMediumCloseUp,
		ShotCloseUp, ShotExtremeCloseUp, ShotOverTheShoulder, ShotPOV, ShotInsert,
	}
	CameraAngles = []CameraAngle{
		AngleEyeLevel, AngleHigh, AngleLow, AngleBirdEye, AngleWormEye, AngleDutch,
	}
	Movements = []Movement{
		MoveStatic, MovePan, MoveTilt, MoveDolly, MoveTracking,
		MoveCrane, MoveHandheld, MoveZoom, MoveSteadicam,
	}
)

// ShotStatusPlanned is the only status a freshly recovered shot can carry.
const ShotStatusPlanned = "planned"

// ShotRecord is one normalized entry of a shot breakdown.
type ShotRecord struct {
	ShotNumber      int         `json:"shotNumber"`
	ShotType        ShotType    `json:"shotType"`
	CameraAngle     CameraAngle `json:"cameraAngle"`
	Movement        Movement    `json:"movement"`
	Description     string      `json:"description"`
	Action          string      `json:"action"`
	Dialogue        string      `json:"dialogue"`
	Characters      []string    `json:"characters"`
	DurationSeconds *int        `json:"durationSeconds"`
	Status          string      `json:"status"`
}
