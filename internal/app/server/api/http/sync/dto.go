package sync

import "vgsync/internal/domain/sync"

type batchSyncInput struct {
	Body sync.BatchRequest
}

type batchSyncOutput struct {
	Body sync.BatchResponse
}
