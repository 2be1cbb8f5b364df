package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
)

func TestMemoryCollection_Contract(t *testing.T) {
	runCollectionContract(t, repository.NewMemoryCollection[model.Employee]())
}

func TestMemoryCollection(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory department collection", t, func() {
		c := repository.NewMemoryCollection[model.Department]()
		So(c.Upsert(ctx, model.Department{ID: "d1", Name: "Engineering", Description: "Builds the product"}), ShouldBeNil)
		So(c.Upsert(ctx, model.Department{ID: "d2", Name: "Human Resources", Description: "People operations"}), ShouldBeNil)

		Convey("When searching by description text", func() {
			page, total, err := c.List(ctx, repository.Query{Search: "  PEOPLE "})

			Convey("Then the match is case-insensitive and trimmed", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 1)
				So(page[0].ID, ShouldEqual, "d2")
			})
		})

		Convey("When the limit is zero", func() {
			page, total, err := c.List(ctx, repository.Query{})

			Convey("Then every record is returned", func() {
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 2)
				So(len(page), ShouldEqual, 2)
			})
		})

		Convey("When a negative offset is given", func() {
			page, _, err := c.List(ctx, repository.Query{Offset: -3, Limit: 1})

			Convey("Then paging starts at the first record", func() {
				So(err, ShouldBeNil)
				So(page[0].ID, ShouldEqual, "d1")
			})
		})
	})

	Convey("Given concurrent writers", t, func() {
		c := repository.NewMemoryCollection[model.Shift]()
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = c.Upsert(ctx, model.Shift{ID: fmt.Sprintf("s-%02d", i), EmployeeID: "e1"})
				_, _, _ = c.List(ctx, repository.Query{Limit: 5})
			}(i)
		}
		wg.Wait()

		Convey("Then every write is stored", func() {
			n, err := c.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 64)
		})
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	Convey("Given the memory driver", t, func() {
		s, err := repository.Open(ctx, repository.DriverMemory, repository.WithMetrics(true))
		So(err, ShouldBeNil)
		defer func() { _ = s.Close(ctx) }()

		Convey("Then every kind has an empty collection", func() {
			So(s.Driver(), ShouldEqual, repository.DriverMemory)
			counts, err := s.Counts(ctx)
			So(err, ShouldBeNil)
			So(len(counts), ShouldEqual, len(model.Kinds()))
			for _, kind := range model.Kinds() {
				So(counts[kind], ShouldEqual, 0)
			}
		})

		Convey("Then instrumented collections behave like the plain ones", func() {
			So(s.Employees.Upsert(ctx, model.Employee{ID: "e1", Name: "Ada"}), ShouldBeNil)
			got, err := s.Employees.Get(ctx, "e1")
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Ada")

			_, err = s.Employees.Get(ctx, "missing")
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})

	Convey("Given an unknown driver", t, func() {
		_, err := repository.Open(ctx, "sqlite")

		Convey("Then Open fails", func() {
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
		})
	})

	Convey("Given a network driver without connection settings", t, func() {
		_, pgErr := repository.Open(ctx, repository.DriverPostgres)
		_, mongoErr := repository.Open(ctx, repository.DriverMongo)

		Convey("Then Open fails before dialing", func() {
			So(errors.Is(pgErr, repository.ErrMissingConnection), ShouldBeTrue)
			So(errors.Is(mongoErr, repository.ErrMissingConnection), ShouldBeTrue)
		})
	})
}
