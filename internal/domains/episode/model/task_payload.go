package model

// Task types consumed by the sync worker. Chains are ordered pairs:
// the first step enqueues the follow-up itself once it completes.
const (
	TypeAppendEpisode = "episode:append"
	TypeDeleteRemote  = "episode:delete_remote"
	TypeSyncCache     = "episode:sync_cache"
)

// QueueEpisodes is the asynq queue all episode sync tasks run on. A
// single queue keeps steps of one chain FIFO relative to each other.
const QueueEpisodes = "episodes"

type AppendEpisodePayload struct {
	Episode Episode `json:"episode"`
}

type DeleteRemotePayload struct {
	EpisodeID int `json:"episode_id"`
}

type SyncCachePayload struct{}
