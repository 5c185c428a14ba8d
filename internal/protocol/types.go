// Package protocol implements the wire codec: the length-prefixed tagged
// envelope spoken over TCP and the fixed binary stroke record spoken over
// UDP. Tag values are a compatibility contract with existing clients and
// the browser bridge; do not renumber.
package protocol

import "strconv"

// MsgType tags a reliable-stream envelope. The tag lives inside the JSON
// payload, not in the frame header.
type MsgType uint32

const (
	MsgPing MsgType = iota
	MsgPong
	MsgRegister
	MsgRegisterAck
	MsgJoinRoom
	MsgCreateRoom
	MsgRoomCreated
	MsgRoomJoined
	MsgRoomFull
	MsgRoomNotFound
	MsgGameStart
	MsgYourTurn
	MsgWordToDraw
	MsgRoundStart
	MsgChat
	MsgChatBroadcast
	MsgGuessCorrect
	MsgGuessWrong
	MsgTimerUpdate
	MsgCountdownUpdate
	MsgRoundEnd
	MsgGameEnd
	MsgPlayerJoin
	MsgPlayerLeave
	MsgScoreUpdate
	MsgReconnectRequest
	MsgReconnectSuccess
	MsgReconnectFail
	MsgError
	MsgDisconnect
)

// Drawing tags share the envelope tag space so clients without a UDP path
// can send strokes over the reliable channel.
const (
	MsgStroke      MsgType = 100
	MsgClearCanvas MsgType = 101
	MsgUndo        MsgType = 102
)

var msgNames = map[MsgType]string{
	MsgPing:             "PING",
	MsgPong:             "PONG",
	MsgRegister:         "REGISTER",
	MsgRegisterAck:      "REGISTER_ACK",
	MsgJoinRoom:         "JOIN_ROOM",
	MsgCreateRoom:       "CREATE_ROOM",
	MsgRoomCreated:      "ROOM_CREATED",
	MsgRoomJoined:       "ROOM_JOINED",
	MsgRoomFull:         "ROOM_FULL",
	MsgRoomNotFound:     "ROOM_NOT_FOUND",
	MsgGameStart:        "GAME_START",
	MsgYourTurn:         "YOUR_TURN",
	MsgWordToDraw:       "WORD_TO_DRAW",
	MsgRoundStart:       "ROUND_START",
	MsgChat:             "CHAT",
	MsgChatBroadcast:    "CHAT_BROADCAST",
	MsgGuessCorrect:     "GUESS_CORRECT",
	MsgGuessWrong:       "GUESS_WRONG",
	MsgTimerUpdate:      "TIMER_UPDATE",
	MsgCountdownUpdate:  "COUNTDOWN_UPDATE",
	MsgRoundEnd:         "ROUND_END",
	MsgGameEnd:          "GAME_END",
	MsgPlayerJoin:       "PLAYER_JOIN",
	MsgPlayerLeave:      "PLAYER_LEAVE",
	MsgScoreUpdate:      "SCORE_UPDATE",
	MsgReconnectRequest: "RECONNECT_REQUEST",
	MsgReconnectSuccess: "RECONNECT_SUCCESS",
	MsgReconnectFail:    "RECONNECT_FAIL",
	MsgError:            "ERROR",
	MsgDisconnect:       "DISCONNECT",
	MsgStroke:           "STROKE",
	MsgClearCanvas:      "CLEAR_CANVAS",
	MsgUndo:             "UNDO",
}

func (t MsgType) String() string {
	if s, ok := msgNames[t]; ok {
		return s
	}
	return "UNKNOWN(" + strconv.FormatUint(uint64(t), 10) + ")"
}
