package server

import "hide-and-seek/server/internal/environment"

type joinResponse struct {
	Ver     int                `json:"ver"`
	ID      string             `json:"id"`
	Players []Player           `json:"players"`
	Props   []environment.Prop `json:"props"`
	Effects []Effect           `json:"effects"`
}

type stateMessage struct {
	Ver        int      `json:"ver"`
	Type       string   `json:"type"`
	Players    []Player `json:"players"`
	Effects    []Effect `json:"effects"`
	Tick       uint64   `json:"t"`
	ServerTime int64    `json:"serverTime"`
}

type diagnosticsPlayer struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
	Camouflaged   bool   `json:"camouflaged"`
}
