// Package mqtt provides MQTT connectivity for Canopy Core.
//
// This package wraps paho.mqtt.golang with connection management,
// automatic reconnection, subscription restoration, and Last Will and
// Testament for offline detection.
//
// # Topic Scheme
//
// All topics live under the "canopy" prefix:
//
//	canopy/sensor/{room}/{device}    raw sensor metrics (retained, from hardware)
//	canopy/tank/{room}               CO2 tank level (retained, from hardware)
//	canopy/command/{room}/{device}   actuator commands (from the engine)
//	canopy/alert/{room}              sensor alert events
//	canopy/notification/{room}       automation notifications
//	canopy/system/status             engine online/offline status (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	err = client.Subscribe(topics.AllSensorStates(), 1, handleSensorState)
//
// # Thread Safety
//
// All client methods are safe for concurrent use. Message handlers run in
// separate goroutines and are wrapped with panic recovery.
package mqtt
