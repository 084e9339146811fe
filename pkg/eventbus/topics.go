package eventbus

// Topics exchanged between lamp components.
const (
	// Controller inputs.
	TopicMoveAngles      = "controller_move_angles"   // map[robot.MotorName]robot.Angle
	TopicMoveEncoded     = "controller_move_encodeds" // map[robot.MotorName]robot.EncodedAngle
	TopicMovePosition    = "controller_move_position" // robot.Position
	TopicMoveTrackingCmd = "controller_move_tracking" // robot.Normalized
	TopicTorque          = "controller_torque"        // bool

	// Controller output, periodic.
	TopicAngles = "controller_angles" // map[robot.MotorName]robot.Angle

	// Vision.
	TopicCameraFrame  = "camera_frame"  // camera.Frame
	TopicTrackingMode = "tracking_mode" // tracking.Mode, *tracking.Subject
	TopicMoveTracking = "move_tracking" // robot.Normalized

	// Peripherals and assistant.
	TopicLightSet   = "light_set"   // light.Percent
	TopicAIResponse = "ai_response" // assistant.Response
	TopicTalk       = "talk"        // string
)
