package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/martinramirez09/aiblog/internal/client"
	"github.com/martinramirez09/aiblog/internal/logging"
)

var authors = []struct {
	email    string
	password string
}{
	{"lucia@example.com", "seed-password-1"},
	{"mateo@example.com", "seed-password-2"},
	{"sofia@example.com", "seed-password-3"},
}

var prompts = []string{
	"Cinco consejos para empezar a programar en Go",
	"Por qué los tests de integración importan más de lo que crees",
	"Cómo elegir una base de datos para un proyecto pequeño",
	"Lo que aprendí desplegando mi primera API en la nube",
	"Buenas prácticas para manejar secretos en aplicaciones web",
	"Una introducción amable a los tokens JWT",
	"El arte de escribir mensajes de commit útiles",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "aiblog server URL")
	count := flag.Int("posts", 4, "number of posts to generate")
	flag.Parse()

	log := logging.New("info", "text", nil)
	log.WithField("url", *baseURL).Info("seeding")

	if err := client.New(*baseURL).Health(); err != nil {
		log.WithError(err).Fatal("server is not reachable")
	}

	var clients []*client.Client
	for _, a := range authors {
		c := client.New(*baseURL)
		if err := c.RegisterAndLogin(a.email, a.password); err != nil {
			log.WithError(err).WithField("email", a.email).Fatal("register author")
		}
		log.WithField("email", a.email).Info("✓ author ready")
		clients = append(clients, c)
	}

	created := 0
	for i := 0; i < *count; i++ {
		idx := rand.Intn(len(clients))
		prompt := prompts[i%len(prompts)]

		post, err := clients[idx].GeneratePost(prompt)
		if err != nil {
			log.WithError(err).WithField("prompt", prompt).Warn("✗ failed to generate post")
			continue
		}
		created++
		log.WithFields(logrus.Fields{
			"post_id": post.ID,
			"title":   post.Title,
			"author":  authors[idx].email,
		}).Info("✓ generated post")

		// spread out created_at times
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Authors: %d\n", len(authors))
	fmt.Printf("Posts:   %d\n", created)
	fmt.Println("\nList with: aiblog posts --server", *baseURL)
}
