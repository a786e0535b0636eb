package checks

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/config"
)

// checkTCP verifies a plain TCP connect completes before the timeout.
func checkTCP(svc config.Service) Result {
	address := net.JoinHostPort(svc.Host, strconv.Itoa(svc.Port))
	conn, err := net.DialTimeout("tcp", address, svc.Timeout(defaultTCPTimeout))
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return fail("TCP timeout")
		}
		return fail(fmt.Sprintf("TCP error: %v", err))
	}
	conn.Close()
	return pass(fmt.Sprintf("TCP %s ok", address))
}

// checkTLS completes a handshake and verifies the leaf certificate has at
// least minDaysLeft of validity remaining (default 7 days). Chain trust is
// deliberately not checked; expiry is the signal this check exists for.
func checkTLS(svc config.Service) Result {
	port := svc.Port
	if port == 0 {
		port = 443
	}
	serverName := svc.ServerName
	if serverName == "" {
		serverName = svc.Host
	}

	dialer := &net.Dialer{Timeout: svc.Timeout(defaultTLSTimeout)}
	address := net.JoinHostPort(svc.Host, strconv.Itoa(port))
	conn, err := tls.DialWithDialer(dialer, "tcp", address, &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true, //nolint:gosec // expiry check, not trust check
	})
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return fail("TLS timeout")
		}
		return fail(fmt.Sprintf("TLS error: %v", err))
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return fail("no cert")
	}

	daysLeft := int(time.Until(certs[0].NotAfter).Hours() / 24)
	minDays := svc.MinDaysLeft
	if minDays <= 0 {
		minDays = 7
	}
	detail := fmt.Sprintf("TLS expires in %dd", daysLeft)
	if daysLeft < minDays {
		return fail(detail)
	}
	return pass(detail)
}
