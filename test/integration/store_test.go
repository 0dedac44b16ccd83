//go:build integration

package integration_test

import (
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/and161185/gophpress/internal/crypto"
	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/limiter"
	"github.com/and161185/gophpress/internal/migrate"
	"github.com/and161185/gophpress/internal/model"
	pgrepo "github.com/and161185/gophpress/internal/repository/postgres"
	"github.com/and161185/gophpress/internal/service"
	"github.com/and161185/gophpress/internal/token"
)

var _ = Describe("Postgres store", func() {
	var (
		users   *pgrepo.UserRepo
		posts   *pgrepo.PostRepo
		authSvc *service.AuthServiceImpl
		postSvc *service.PostServiceImpl
		lim     *limiter.PG
	)

	BeforeEach(func() {
		truncate()
		users = pgrepo.NewUserRepo(env.db)
		posts = pgrepo.NewPostRepo(env.db)

		h, err := crypto.NewHasher(crypto.HashParams{Algorithm: crypto.Argon2id, Time: 1, Memory: 64, Threads: 1, BcryptCost: bcrypt.MinCost})
		Expect(err).NotTo(HaveOccurred())
		tokens, err := token.New([]byte("integration-secret-integration-secret"), time.Hour)
		Expect(err).NotTo(HaveOccurred())

		lim = limiter.NewPG(env.db.Pool, limiter.Config{Window: time.Minute, MaxFails: 3, BlockFor: time.Minute})
		authSvc = service.NewAuthService(users, crypto.NewPool(h, 4), tokens, lim, zap.NewNop())
		postSvc = service.NewPostService(posts, users, zap.NewNop())
	})

	register := func(first, email string) model.User {
		_, u, err := authSvc.Register(env.ctx, service.RegisterInput{FirstName: first, LastName: "X", Email: email, Password: "password123"})
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	Describe("migrations", func() {
		It("reports the latest schema version", func() {
			v, err := migrate.Version(env.ctx, env.dsn)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically(">=", 3))
		})
	})

	Describe("users", func() {
		It("rejects a duplicate email regardless of case and keeps the first record", func() {
			first := register("Jo", "jo@example.com")

			_, _, err := authSvc.Register(env.ctx, service.RegisterInput{FirstName: "Other", LastName: "Y", Email: "JO@Example.com", Password: "password123"})
			Expect(errors.Is(err, errs.ErrConflict)).To(BeTrue())

			got, err := users.GetByID(env.ctx, first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FirstName).To(Equal("Jo"))
		})

		It("switches credentials atomically", func() {
			u := register("Jo", "jo@example.com")
			_, err := authSvc.UpdateSettings(env.ctx, u.ID, service.SettingsInput{Email: "jo2@example.com", OldPassword: "password123", NewPassword: "newpassword1"})
			Expect(err).NotTo(HaveOccurred())

			_, _, err = authSvc.Login(env.ctx, "jo2@example.com", "newpassword1", "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())
			_, _, err = authSvc.Login(env.ctx, "jo@example.com", "password123", "10.0.0.1")
			Expect(errors.Is(err, errs.ErrUnauthorized)).To(BeTrue())
		})
	})

	Describe("login limiter", func() {
		It("blocks after repeated failures from one address", func() {
			register("Jo", "jo@example.com")
			for i := 0; i < 2; i++ {
				_, _, err := authSvc.Login(env.ctx, "jo@example.com", "wrong-password", "10.0.0.9")
				Expect(errors.Is(err, errs.ErrUnauthorized)).To(BeTrue())
			}
			_, _, err := authSvc.Login(env.ctx, "jo@example.com", "wrong-password", "10.0.0.9")
			Expect(errors.Is(err, errs.ErrRateLimited)).To(BeTrue())

			_, _, err = authSvc.Login(env.ctx, "jo@example.com", "password123", "10.0.0.9")
			Expect(errors.Is(err, errs.ErrRateLimited)).To(BeTrue())

			_, _, err = authSvc.Login(env.ctx, "jo@example.com", "password123", "10.0.0.10")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("posts", func() {
		It("records edits newest first with the right editors", func() {
			jo := register("Jo", "jo@example.com")
			sam := register("Sam", "sam@example.com")

			p, err := postSvc.Create(env.ctx, jo.ID, model.PostFields{Title: "Hello", Text: "World"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Revisions).To(BeEmpty())

			_, err = postSvc.Edit(env.ctx, jo.ID, p.ID, model.PostFields{Title: "Hello", Text: "World!"})
			Expect(err).NotTo(HaveOccurred())
			got, err := postSvc.Edit(env.ctx, sam.ID, p.ID, model.PostFields{Title: "Hello", Text: "World!!"})
			Expect(err).NotTo(HaveOccurred())

			Expect(got.Text).To(Equal("World!!"))
			Expect(got.Revisions).To(HaveLen(2))
			Expect(got.Revisions[0].EditorName).To(Equal("Sam X"))
			Expect(got.Revisions[1].EditorName).To(Equal("Jo X"))
		})

		It("keeps every concurrent edit", func() {
			jo := register("Jo", "jo@example.com")
			p, err := postSvc.Create(env.ctx, jo.ID, model.PostFields{Title: "Hello", Text: "World"})
			Expect(err).NotTo(HaveOccurred())

			const n = 12
			var wg sync.WaitGroup
			errCh := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := postSvc.Edit(env.ctx, jo.ID, p.ID, model.PostFields{Title: "Hello", Text: "edit"})
					errCh <- err
				}()
			}
			wg.Wait()
			close(errCh)
			for err := range errCh {
				Expect(err).NotTo(HaveOccurred())
			}

			hist, err := postSvc.History(env.ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist).To(HaveLen(n))
		})

		It("writes nothing when editing a missing post", func() {
			jo := register("Jo", "jo@example.com")
			_, err := postSvc.Edit(env.ctx, jo.ID, uuid.Must(uuid.NewV4()), model.PostFields{Title: "t", Text: "b"})
			Expect(errors.Is(err, errs.ErrNotFound)).To(BeTrue())

			var count int
			Expect(env.db.Pool.QueryRow(env.ctx, `SELECT count(*) FROM post_revisions`).Scan(&count)).To(Succeed())
			Expect(count).To(BeZero())
		})

		It("filters lists and cascades deletes", func() {
			jo := register("Jo", "jo@example.com")
			cat := uuid.Must(uuid.NewV4())
			draft, err := postSvc.Create(env.ctx, jo.ID, model.PostFields{Title: "d", Text: "d", Category: &cat})
			Expect(err).NotTo(HaveOccurred())
			published, err := postSvc.Create(env.ctx, jo.ID, model.PostFields{Title: "p", Text: "p", Status: model.StatusPublished, Category: &cat})
			Expect(err).NotTo(HaveOccurred())

			pub, err := postSvc.ListPublished(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pub).To(HaveLen(1))
			all, err := postSvc.ListAll(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			byCat, err := postSvc.ListByCategory(env.ctx, cat)
			Expect(err).NotTo(HaveOccurred())
			Expect(byCat).To(HaveLen(1))
			Expect(byCat[0].ID).To(Equal(published.ID))

			_, err = postSvc.Edit(env.ctx, jo.ID, draft.ID, model.PostFields{Title: "d2", Text: "d2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(postSvc.Delete(env.ctx, draft.ID)).To(Succeed())
			_, err = postSvc.Get(env.ctx, draft.ID)
			Expect(errors.Is(err, errs.ErrNotFound)).To(BeTrue())

			var count int
			Expect(env.db.Pool.QueryRow(env.ctx, `SELECT count(*) FROM post_revisions WHERE post_id = $1`, draft.ID).Scan(&count)).To(Succeed())
			Expect(count).To(BeZero())
		})
	})
})
