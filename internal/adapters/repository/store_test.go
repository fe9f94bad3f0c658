package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func roundTrip(t *testing.T, store repository.Store) {
	t.Helper()
	ctx := context.Background()

	Convey("When writing a multi-key changeset", func() {
		events := &model.EventLog{
			NextID: 3,
			Items: []model.CompareEvent{
				{ID: 1, CurrentVideoID: "a", OpponentVideoID: "b", Verdict: model.VerdictWorse, CategoryID: "default"},
				{ID: 2, CurrentVideoID: "a", OpponentVideoID: "c", Verdict: model.VerdictSame, CategoryID: "default", Disabled: true},
			},
		}
		meta := &model.Meta{SchemaVersion: model.SchemaVersion, LastCleanupAt: 42}

		err := store.Set(ctx, repository.Changes{Events: events, Meta: meta})
		So(err, ShouldBeNil)

		Convey("Then requested keys read back decoded", func() {
			snap, err := store.Get(ctx, repository.KeyEvents, repository.KeyMeta)
			So(err, ShouldBeNil)
			So(snap.Events, ShouldResemble, events)
			So(snap.Meta, ShouldResemble, meta)
		})

		Convey("And unrequested keys stay nil", func() {
			snap, err := store.Get(ctx, repository.KeyMeta)
			So(err, ShouldBeNil)
			So(snap.Events, ShouldBeNil)
			So(snap.Meta, ShouldNotBeNil)
		})

		Convey("And never-written keys come back nil, not as errors", func() {
			snap, err := store.Get(ctx, repository.KeySettings, repository.KeyCategories)
			So(err, ShouldBeNil)
			So(snap.Settings, ShouldBeNil)
			So(snap.Categories, ShouldBeNil)
		})

		Convey("And a later partial write leaves other keys untouched", func() {
			err := store.Set(ctx, repository.Changes{Meta: &model.Meta{SchemaVersion: model.SchemaVersion, LastCleanupAt: 99}})
			So(err, ShouldBeNil)

			snap, err := store.Get(ctx, repository.KeyEvents, repository.KeyMeta)
			So(err, ShouldBeNil)
			So(snap.Meta.LastCleanupAt, ShouldEqual, 99)
			So(snap.Events, ShouldResemble, events)
		})
	})

	Convey("When writing an empty changeset", func() {
		So(store.Set(ctx, repository.Changes{}), ShouldBeNil)
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		store := repository.NewMemoryStore()
		roundTrip(t, store)

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)

			Convey("Then reads and writes report closed", func() {
				_, err := store.Get(context.Background(), repository.KeyMeta)
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
				So(errors.Is(store.Set(context.Background(), repository.Changes{Meta: &model.Meta{}}), repository.ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When failure injection is armed", func() {
			injected := errors.New("disk full")
			store.FailNextSets(1, injected)

			Convey("Then exactly one write fails", func() {
				So(store.Set(context.Background(), repository.Changes{Meta: &model.Meta{}}), ShouldEqual, injected)
				So(store.Set(context.Background(), repository.Changes{Meta: &model.Meta{}}), ShouldBeNil)
			})
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a SQLite store in a temp dir", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "snapshot.db")

		store, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		roundTrip(t, store)

		Convey("When a second process tries to open the same snapshot", func() {
			_, err := repository.OpenSQLite(ctx, path)

			Convey("Then the lock refuses it", func() {
				So(errors.Is(err, repository.ErrLocked), ShouldBeTrue)
			})
		})

		Convey("When the store is reopened after close", func() {
			So(store.Set(ctx, repository.Changes{Meta: &model.Meta{SchemaVersion: 3}}), ShouldBeNil)
			So(store.Close(), ShouldBeNil)

			reopened, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			defer reopened.Close()

			Convey("Then persisted values survive", func() {
				snap, err := reopened.Get(ctx, repository.KeyMeta)
				So(err, ShouldBeNil)
				So(snap.Meta, ShouldNotBeNil)
				So(snap.Meta.SchemaVersion, ShouldEqual, 3)
			})
		})
	})
}
