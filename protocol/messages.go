package protocol

import (
	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/freespace"
	"github.com/aukilabs/depthlab/geometry"
)

// ErrorCode tells why a request failed.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeSessionAlreadyJoined ErrorCode = "session_already_joined"
	ErrorCodeInvalidFrame         ErrorCode = "invalid_frame"
	ErrorCodeInvalidCamera        ErrorCode = "invalid_camera"
	ErrorCodeBusy                 ErrorCode = "busy"
	ErrorCodeDisabled             ErrorCode = "disabled"
	ErrorCodeInternalServerError  ErrorCode = "internal_server_error"
)

type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// SendError sends an error response to the given request.
func SendError(respond ResponseSender, requestID uint32, code ErrorCode, message string) {
	respond.Send(MsgTypeErrorResponse, requestID, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

type SessionJoinRequest struct {
	// The session to join. A new session is created when empty.
	SessionID string `json:"session_id,omitempty"`
}

type SessionJoinResponse struct {
	SessionID     string `json:"session_id"`
	SessionUUID   string `json:"session_uuid"`
	ParticipantID uint32 `json:"participant_id"`
}

// DepthFrame is a depth map sent by the AR client.
type DepthFrame = depth.Payload

// CameraUpdate is the pose and screen intrinsics of the AR camera matching
// the latest depth frame.
type CameraUpdate struct {
	// Row major camera to world transform.
	Pose           [16]float32 `json:"pose"`
	FocalLength    [2]float32  `json:"focal_length"`
	PrincipalPoint [2]float32  `json:"principal_point"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
}

// Camera validates the update and returns the camera it describes.
func (u CameraUpdate) Camera() (collision.Camera, error) {
	in := depth.NewIntrinsics(
		u.FocalLength[0],
		u.FocalLength[1],
		u.PrincipalPoint[0],
		u.PrincipalPoint[1],
		u.Width,
		u.Height,
	)
	if err := in.Validate(); err != nil {
		return collision.Camera{}, err
	}
	return collision.NewCamera(geometry.Matrix4(u.Pose), in), nil
}

// CollisionRequest asks whether an object placed in the world collides with
// the real environment. The object is either a named profile or an inline
// geometry, placed at Position or moved by Transform.
type CollisionRequest struct {
	Profile  string                 `json:"profile,omitempty"`
	Mode     collision.ColliderMode `json:"mode,omitempty"`
	Center   [3]float32             `json:"center,omitempty"`
	Extents  [3]float32             `json:"extents,omitempty"`
	Vertices [][3]float32           `json:"vertices,omitempty"`

	Position  [3]float32   `json:"position"`
	Transform *[16]float32 `json:"transform,omitempty"`

	Thresholds *collision.Thresholds `json:"thresholds,omitempty"`
}

// HasInlineGeometry reports whether the request carries its own geometry
// instead of naming a profile.
func (r CollisionRequest) HasInlineGeometry() bool {
	return len(r.Vertices) != 0 || r.Extents != [3]float32{}
}

func (r CollisionRequest) InlineProfile() collision.Profile {
	return collision.Profile{
		Name:     r.Profile,
		Mode:     r.Mode,
		Center:   r.Center,
		Extents:  r.Extents,
		Vertices: r.Vertices,
	}
}

// ObjectToWorld returns the transform placing the object in the world.
func (r CollisionRequest) ObjectToWorld() geometry.Matrix4 {
	if r.Transform != nil {
		return geometry.Matrix4(*r.Transform)
	}
	return geometry.Translation(geometry.NewVector3fFromArray(r.Position))
}

type CollisionResponse struct {
	collision.Verdict
}

type ExploreRequest struct {
	// The world point where the user touched the surface to explore.
	Anchor [3]float32 `json:"anchor"`
}

// ExploreMarkers carries a batch of free space points found by a running
// exploration. Each marker is x, y, z and its depth to the camera.
type ExploreMarkers struct {
	ExplorationID string       `json:"exploration_id"`
	Markers       [][4]float32 `json:"markers"`
}

type ExploreResponse struct {
	ExplorationID string `json:"exploration_id"`
	Generation    uint64 `json:"generation"`
	freespace.Result
}
