package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/iieadb/eventboard/internal/adapters/http/api"
	"github.com/iieadb/eventboard/internal/adapters/repository"
	"github.com/iieadb/eventboard/internal/cli"
	"github.com/iieadb/eventboard/internal/config"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/listing"
	. "github.com/smartystreets/goconvey/convey"
)

type harness struct {
	opts   *cli.RootOptions
	store  *repository.MemoryStore
	asked  []string
	answer bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := repository.NewMemoryStore()
	if _, err := repository.LoadSeed(context.Background(), store, "testdata/seed.yaml"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := config.New()
	cfg.JWTSecret = "cli-secret"

	h := &harness{store: store}
	h.opts = &cli.RootOptions{
		Config: cfg,
		Store:  store,
		Prompter: cli.PrompterFunc(func(_ context.Context, question string) (bool, error) {
			h.asked = append(h.asked, question)
			return h.answer, nil
		}),
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommandWith(h.opts)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	Convey("Given the root command", t, func() {
		cmd := cli.NewRootCommand()

		Convey("Then every subcommand should be registered", func() {
			for _, name := range []string{"serve", "list", "delete", "token"} {
				sub, _, err := cmd.Find([]string{name})
				So(err, ShouldBeNil)
				So(sub.Name(), ShouldEqual, name)
			}
		})

		Convey("Then --format should default to text", func() {
			flag := cmd.PersistentFlags().Lookup("format")
			So(flag, ShouldNotBeNil)
			So(flag.DefValue, ShouldEqual, "text")
		})
	})

	Convey("Given an unknown output format", t, func() {
		h := newHarness(t)
		_, err := h.run("list", "--format", "yaml")

		Convey("Then the command should fail before running", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid format")
		})
	})
}

func TestListCommand(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		h := newHarness(t)

		Convey("When listing as JSON by start date for ana", func() {
			out, err := h.run("list", "--format", "json", "--sort", "start_date", "--user-id", "10", "--username", "ana")

			Convey("Then the output should match the golden file", func() {
				So(err, ShouldBeNil)
				g := goldie.New(t,
					goldie.WithFixtureDir("testdata/golden"),
					goldie.WithNameSuffix(".golden"),
				)
				g.Assert(t, "list_start_date_json", []byte(out))
			})
		})

		Convey("When listing as text by name descending anonymously", func() {
			out, err := h.run("list", "--sort", "name", "--order", "desc")

			Convey("Then rows should be ordered with the arrow on the active column", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
				So(len(lines), ShouldEqual, 4)
				So(lines[0], ShouldContainSubstring, "Name v")
				So(lines[0], ShouldContainSubstring, "Team Event?")
				So(lines[1], ShouldStartWith, "1 ")
				So(lines[2], ShouldStartWith, "2 ")
				So(lines[3], ShouldStartWith, "5 ")
				So(out, ShouldNotContainSubstring, listing.DeleteColumnLabel)
			})
		})

		Convey("When listing as text for ana", func() {
			out, err := h.run("list", "--user-id", "10")

			Convey("Then only her row should carry the delete control", func() {
				So(err, ShouldBeNil)
				So(strings.Count(out, "["+listing.DeleteColumnLabel+"]"), ShouldEqual, 1)
				So(out, ShouldContainSubstring, "March 1, 2024")
			})
		})

		Convey("When the sort field is invalid", func() {
			_, err := h.run("list", "--sort", "id")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDeleteCommand(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		h := newHarness(t)
		ctx := context.Background()

		Convey("When ana confirms deleting her event", func() {
			h.answer = true
			out, err := h.run("delete", "1", "--user-id", "10")

			Convey("Then she should be asked once and the event removed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "deleted event 1\n")
				So(h.asked, ShouldResemble, []string{`Delete event 1 "Spring Cup"?`})
				_, err := h.store.Get(ctx, 1)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When ana declines", func() {
			h.answer = false
			out, err := h.run("delete", "1", "--user-id", "10", "--format", "json")

			Convey("Then nothing should be deleted", func() {
				So(err, ShouldBeNil)
				var res cli.DeleteResult
				So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
				So(res, ShouldResemble, cli.DeleteResult{ID: 1, Status: "cancelled", Version: 1})
				n, _ := h.store.Count(ctx)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When --yes is given", func() {
			out, err := h.run("delete", "1", "--user-id", "10", "--yes", "--format", "json")

			Convey("Then no prompt should be shown and the listing reloaded", func() {
				So(err, ShouldBeNil)
				So(h.asked, ShouldBeEmpty)
				var res cli.DeleteResult
				So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
				So(res, ShouldResemble, cli.DeleteResult{ID: 1, Status: "deleted", Version: 2})
			})
		})

		Convey("When bo tries to delete ana's event", func() {
			h.answer = true
			_, err := h.run("delete", "1", "--user-id", "20")

			Convey("Then the control should be missing and nothing asked", func() {
				So(errors.Is(err, listing.ErrNotDeletable), ShouldBeTrue)
				So(h.asked, ShouldBeEmpty)
				n, _ := h.store.Count(ctx)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When the event has no creator", func() {
			_, err := h.run("delete", "5", "--user-id", "10", "--yes")
			So(errors.Is(err, listing.ErrNotDeletable), ShouldBeTrue)
		})

		Convey("When the event does not exist", func() {
			_, err := h.run("delete", "99", "--user-id", "10", "--yes")
			So(errors.Is(err, listing.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the id is malformed", func() {
			_, err := h.run("delete", "one", "--user-id", "10")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTokenCommand(t *testing.T) {
	Convey("Given a configured signing secret", t, func() {
		h := newHarness(t)

		Convey("When issuing a token", func() {
			out, err := h.run("token", "--user-id", "10", "--username", "ana")

			Convey("Then the API should accept it as ana", func() {
				So(err, ShouldBeNil)
				auth, err := api.NewAuthenticator("cli-secret", h.opts.Config.TokenTTL)
				So(err, ShouldBeNil)
				id, err := auth.Verify(strings.TrimSpace(out))
				So(err, ShouldBeNil)
				So(id, ShouldResemble, session.Identity{ID: 10, Username: "ana"})
			})
		})

		Convey("When issuing as JSON", func() {
			out, err := h.run("token", "--user-id", "10", "--format", "json")

			Convey("Then the result should describe the token", func() {
				So(err, ShouldBeNil)
				var res cli.TokenResult
				So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
				So(res.TokenType, ShouldEqual, "Bearer")
				So(res.ExpiresIn, ShouldEqual, int64(86400))
				So(res.Token, ShouldNotBeEmpty)
			})
		})

		Convey("When the secret is missing", func() {
			h.opts.Config.JWTSecret = ""
			_, err := h.run("token", "--user-id", "10")
			So(err, ShouldNotBeNil)
		})
	})
}
