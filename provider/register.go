package provider

import "github.com/casualjim/omnichat/internal/registry"

// Global holds the providers an application set up, keyed by Name.
var Global = registry.New[Provider]()

func Register(p Provider) {
	Global.Add(p.Name(), p)
}

func Lookup(name string) (Provider, bool) {
	return Global.Get(name)
}

// GetOrRegister returns the provider registered under name, building and
// registering it with providerF when there is none yet.
func GetOrRegister(name string, providerF func() Provider) Provider {
	p, _ := Global.GetOrAdd(name, providerF)
	return p
}

func Unregister(name string) {
	Global.Del(name)
}

// Registered lists the names of all registered providers in sorted order.
func Registered() []string {
	return Global.Names()
}
