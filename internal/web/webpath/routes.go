package webpath

const (
	Home     = "/"
	Login    = "/login"
	Logout   = "/logout"
	Register = "/register"
)

func Path() map[string]string {
	return map[string]string{
		"Home":     Home,
		"Login":    Login,
		"Logout":   Logout,
		"Register": Register,
	}
}
