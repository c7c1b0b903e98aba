package discovery

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType задаёт тип сервиса рисования в локальной сети.
const ServiceType = "_mandala._tcp"

// Service описывает найденный экземпляр сервиса.
type Service struct {
	Instance string
	Addr     string
	WSPort   string
}

// Advertise публикует сервис через mDNS. TXT-запись несёт порт WebSocket-листенера.
func Advertise(instance string, port int, wsPort string) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	info := []string{"mandala", "ws=" + wsPort}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}
	log.Printf("[MDNS] advertising %s on port %d", instance, port)
	return server, nil
}

// Lookup ищет сервисы в течение timeout и возвращает найденные IPv4-адреса.
func Lookup(timeout time.Duration) ([]Service, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	var found []Service
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range entries {
			if s, ok := fromEntry(e); ok {
				found = append(found, s)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done

	if err != nil {
		return nil, fmt.Errorf("mDNS lookup: %w", err)
	}
	log.Printf("[MDNS] lookup found %d service(s)", len(found))
	return found, nil
}

func fromEntry(e *mdns.ServiceEntry) (Service, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Service{}, false
	}
	return Service{
		Instance: e.Name,
		Addr:     net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
		WSPort:   wsPortOf(e.InfoFields),
	}, true
}

func wsPortOf(fields []string) string {
	for _, f := range fields {
		if len(f) > 3 && f[:3] == "ws=" {
			return f[3:]
		}
	}
	return ""
}
