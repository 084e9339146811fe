// Package lamp drives an animatronic desk lamp built from Feetech servos,
// a camera and a PWM-dimmed light.
//
// # Installation
//
//	go install github.com/gwillem/lamp/cmd/lamp@latest
//
// # Usage
//
// Find the servos and assign them to motors, then record the rest pose and
// range of motion:
//
//	lamp scan
//	lamp calibrate --identify
//
// Then run the lamp:
//
//	lamp serve
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/lamp: CLI with serve, scan, checkup, monitor and calibrate commands
//   - pkg/eventbus: Topic-based publish/subscribe between components
//   - pkg/robot: Angles, motor calibration, configuration and the servo bus
//   - pkg/controller: Motor registry, batch moves and angle broadcasting
//   - pkg/tracking: Face and object tracking state machine
//   - pkg/camera: Frame type and the OpenCV capture loop
//   - pkg/light: Dimmable light over hardware PWM
//   - pkg/assistant: Structured AI responses and their dispatch to the bus
//   - pkg/server: HTTP and websocket API
package lamp
