package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraredis "phototimeline/infrastructure/redis"
	"phototimeline/domain/repositories"
	"phototimeline/pkg/config"
)

func newTestClusterWorker(t *testing.T) (*ClusterWorker, *fakePhotoRepository, *infraredis.FakeKV) {
	photos := newFakePhotoRepository()
	kv := infraredis.NewFakeKV()
	debounce := infraredis.NewDebounceCoordinator(kv, fakeDebounceQueue{}, config.ClusterConfig{
		MeetingGap:  4 * time.Hour,
		DebounceTTL: 5 * time.Second,
		RetryDelay:  3 * time.Second,
		MaxRetries:  2,
	})

	w := NewClusterWorker(&fakeQueue{}, debounce, photos, config.ClusterConfig{
		MeetingGap:        4 * time.Hour,
		ClusterJobTimeout: 30 * time.Second,
		ClusterWorkerCount: 1,
	})
	return w, photos, kv
}

func TestClusterWorkerHandle_QuietBurstReconcilesAndCleansUp(t *testing.T) {
	w, photos, kv := newTestClusterWorker(t)
	ctx := context.Background()
	groupID := uuid.New()

	photos.reconcileResult = repositories.ReconcileResult{MeetingsBuilt: 2, PhotosRouted: 5}

	job := infraredis.ClusterJob{GroupID: groupID.String(), JobID: uuid.NewString()}
	require.NoError(t, kv.Set(ctx, "cluster:job:"+groupID.String(), job.JobID, time.Minute))
	// pending key never set, so ShouldReconcileNow sees a quiet burst immediately.
	w.handle(ctx, job)

	assert.Equal(t, 1, photos.reconcileCalls)
	assert.Equal(t, 1, photos.advisoryLockCalls)

	_, ok, err := kv.Get(ctx, "cluster:job:"+groupID.String())
	require.NoError(t, err)
	assert.False(t, ok, "cleanup should have removed the job key")
}

func TestClusterWorkerHandle_ActiveBurstSkipsReconciliation(t *testing.T) {
	w, photos, _ := newTestClusterWorker(t)
	ctx := context.Background()
	groupID := uuid.New()

	require.NoError(t, w.debounce.Notify(ctx, groupID.String()))

	job := infraredis.ClusterJob{GroupID: groupID.String(), JobID: uuid.NewString()}
	w.handle(ctx, job)

	assert.Equal(t, 0, photos.reconcileCalls, "still-pending burst must not reconcile yet")
}

func TestClusterWorkerHandle_BadGroupIDIsIgnored(t *testing.T) {
	w, photos, _ := newTestClusterWorker(t)
	ctx := context.Background()

	job := infraredis.ClusterJob{GroupID: "not-a-uuid", JobID: uuid.NewString()}
	w.handle(ctx, job)

	assert.Equal(t, 0, photos.reconcileCalls)
}

func TestClusterWorkerHandle_ReconcileFailureLeavesDebounceKeysForRetry(t *testing.T) {
	w, photos, kv := newTestClusterWorker(t)
	ctx := context.Background()
	groupID := uuid.New()

	photos.reconcileErr = assertError{}

	job := infraredis.ClusterJob{GroupID: groupID.String(), JobID: uuid.NewString()}
	require.NoError(t, kv.Set(ctx, "cluster:job:"+groupID.String(), job.JobID, time.Minute))
	w.handle(ctx, job)

	assert.Equal(t, 1, photos.reconcileCalls)
	// Cleanup must not have run: the job key set above is still present,
	// so its TTL remains the path to self-healing.
	_, ok, err := kv.Get(ctx, "cluster:job:"+groupID.String())
	require.NoError(t, err)
	assert.True(t, ok, "failed reconciliation must leave the job key in place")
}

type assertError struct{}

func (assertError) Error() string { return "reconcile failed" }
