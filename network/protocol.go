package network

// Inbound message ids (client -> server).
const (
	MsgTypeHeartbeat   = 1
	MsgTypeCreateRoom  = 101
	MsgTypeJoinRoom    = 102
	MsgTypeLeaveRoom   = 103
	MsgTypeUpdateQuota = 104
	MsgTypeStartGame   = 105
	MsgTypeNightAction = 201
	MsgTypeStartVoting = 202
	MsgTypeCastVote    = 203
	MsgTypeChat        = 204
)

// Outbound message ids (server -> client).
const (
	MsgTypeRoomCreated         = 301
	MsgTypeRoomUpdated         = 302
	MsgTypeRoomClosed          = 303
	MsgTypeRoleAssigned        = 304
	MsgTypePhaseChange         = 305
	MsgTypeActionConfirmed     = 306
	MsgTypeInvestigationResult = 307
	MsgTypeVoteConfirmed       = 308
	MsgTypeVoteUpdate          = 309
	MsgTypeVotingResult        = 310
	MsgTypePlayerDied          = 311
	MsgTypePlayerLeft          = 312
	MsgTypePlayerDisconnected  = 313
	MsgTypeGameOver            = 314
	MsgTypeChatMessage         = 315
	MsgTypeError               = 401
)
