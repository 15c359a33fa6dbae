package web

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	embedded "leapsail"
	authservice "leapsail/auth/service"
	"leapsail/internal/config"
	"leapsail/internal/web/webpath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html"
	"github.com/sirupsen/logrus"
)

const (
	invalidCredentialsMessage = "Invalid username or password !"
	registrationFailedMessage = "Error ! User registration failed."
)

type Server struct {
	auth *authservice.Service
	app  *fiber.App
	cfg  config.Server
	log  *logrus.Entry
}

func New(cfg config.Server, authService *authservice.Service, l *logrus.Logger) (*Server, error) {
	server := Server{
		auth: authService,
		cfg:  cfg,
		log:  l.WithFields(map[string]interface{}{"from": "web"}),
	}

	fsFS, err := fs.Sub(embedded.Views, "views")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(fsFS), ".html")
	engine.Reload(cfg.Debug)
	engine.Debug(cfg.Debug)

	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Static("/", "./public")
	app.Get(webpath.Home, server.handleHome)
	app.Get(webpath.Login, server.handleLoginGet)
	app.Post(webpath.Login, server.handleLoginPost)
	app.Get(webpath.Logout, server.handleLogout)
	app.Get(webpath.Register, server.handleRegisterGet)
	app.Post(webpath.Register, server.handleRegisterPost)
	server.app = app
	return &server, nil
}

func (s *Server) Serve() error {
	return s.app.Listen(s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port))
}

func (s *Server) handleHome(ctx *fiber.Ctx) error {
	user, err := s.auth.Resolve(ctx.Context(), ctx.Cookies(authservice.CookieName))
	if err != nil {
		if errors.Is(err, authservice.ErrNotAuthorized) {
			return ctx.Redirect(webpath.Login)
		}
		return err
	}
	return ctx.Render("index", fiber.Map{
		"Title":        "Home",
		"User":         user,
		"UserInitials": user.Initials(),
		"Path":         webpath.Path(),
	}, "layouts/main")
}

func (s *Server) handleLoginGet(ctx *fiber.Ctx) error {
	return s.renderLogin(ctx, "")
}

func (s *Server) handleLoginPost(ctx *fiber.Ctx) error {
	req, err := parseLoginRequest(ctx)
	if err != nil {
		return s.renderLogin(ctx, invalidCredentialsMessage)
	}
	session, _, err := s.auth.Login(ctx.Context(), req.username, req.password)
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			return s.renderLogin(ctx, invalidCredentialsMessage)
		}
		return err
	}
	cookie, err := s.auth.GenerateCookie(session, s.cfg.Host)
	if err != nil {
		return err
	}
	ctx.Cookie(cookie)
	return ctx.Redirect(webpath.Home)
}

func (s *Server) handleLogout(ctx *fiber.Ctx) error {
	err := s.auth.Logout(ctx.Context(), ctx.Cookies(authservice.CookieName))
	if err != nil {
		// the client is logged out either way, don't block the redirect
		s.log.WithError(err).Warn("session teardown failed")
	}
	ctx.ClearCookie(authservice.CookieName)
	return ctx.Redirect(webpath.Login)
}

func (s *Server) handleRegisterGet(ctx *fiber.Ctx) error {
	return s.renderRegister(ctx, "")
}

func (s *Server) handleRegisterPost(ctx *fiber.Ctx) error {
	req, err := parseRegisterRequest(ctx)
	if err != nil {
		return s.renderRegister(ctx, registrationFailedMessage)
	}
	session, _, err := s.auth.Register(ctx.Context(), req.username, req.password, req.profile)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrUserExists),
			errors.Is(err, authservice.ErrEmptyUsername),
			errors.Is(err, authservice.ErrInvalidCredentials):
			return s.renderRegister(ctx, registrationFailedMessage)
		default:
			return err
		}
	}
	cookie, err := s.auth.GenerateCookie(session, s.cfg.Host)
	if err != nil {
		return err
	}
	ctx.Cookie(cookie)
	return ctx.Redirect(webpath.Home)
}

func (s *Server) renderLogin(ctx *fiber.Ctx, errorMessage string) error {
	return ctx.Render("login", fiber.Map{
		"Title": "Login",
		"Error": errorMessage,
		"Path":  webpath.Path(),
	}, "layouts/main")
}

func (s *Server) renderRegister(ctx *fiber.Ctx, errorMessage string) error {
	return ctx.Render("register", fiber.Map{
		"Title": "Register",
		"Error": errorMessage,
		"Path":  webpath.Path(),
	}, "layouts/main")
}
