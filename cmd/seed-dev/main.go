// seed-dev populates the store with a starter catalog and sample content:
// users, exercises, routines, foods and diets.
//
// Usage (from backend directory):
//   GCP_PROJECT_ID=... FIREBASE_CREDENTIALS_PATH=... go run ./cmd/seed-dev
//
// Run against an emulator or a dev project only; the tool appends documents
// and never deletes.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/fittrack_backend/config"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

type seedExercise struct {
	name        string
	description string
	muscleGroup string
	videoUrl    string
}

type seedRoutineExercise struct {
	exercise string
	day      int
	sets     int
	repsMin  int
	repsMax  int
}

type seedRoutine struct {
	name        string
	description string
	creator     string
	exercises   []seedRoutineExercise
}

type seedFood struct {
	name     string
	calories float64
	protein  float64
	carbs    float64
	fat      float64
}

type seedDietFood struct {
	food  string
	meal  string
	grams float64
}

type seedDiet struct {
	name        string
	description string
	creator     string
	foods       []seedDietFood
}

var exercises = []seedExercise{
	{"Press de Banca", "Ejercicio fundamental para el desarrollo del pecho", "Pecho", "https://www.youtube.com/watch?v=rT7DgCr-3pg"},
	{"Aperturas con Mancuernas", "Aislamiento del pecho con mancuernas", "Pecho", "https://www.youtube.com/watch?v=eozdVDA78K0"},
	{"Fondos en Paralelas", "Ejercicio de peso corporal para pecho y tríceps", "Pecho", "https://www.youtube.com/watch?v=2z8JmcrW-As"},
	{"Dominadas", "Ejercicio fundamental para el desarrollo de la espalda", "Espalda", "https://www.youtube.com/watch?v=eGo4IYlbE5g"},
	{"Remo con Barra", "Ejercicio compuesto para espalda media", "Espalda", "https://www.youtube.com/watch?v=FWJR5Ve8bnQ"},
	{"Peso Muerto", "Ejercicio compuesto que trabaja toda la cadena posterior", "Espalda", "https://www.youtube.com/watch?v=ytGaGIn3SjE"},
	{"Sentadilla", "El rey de los ejercicios para piernas", "Piernas", "https://www.youtube.com/watch?v=ultWZbUMPL8"},
	{"Prensa de Piernas", "Ejercicio de máquina para cuádriceps", "Piernas", "https://www.youtube.com/watch?v=IZxyjW7MPJQ"},
	{"Curl Femoral", "Aislamiento de los isquiotibiales", "Piernas", "https://www.youtube.com/watch?v=ELOCsoDSmrg"},
	{"Elevación de Gemelos", "Ejercicio para pantorrillas", "Piernas", "https://www.youtube.com/watch?v=JbyjNymZOt0"},
	{"Press Militar", "Ejercicio fundamental para hombros", "Hombros", "https://www.youtube.com/watch?v=qEwKCR5JCog"},
	{"Elevaciones Laterales", "Aislamiento del deltoides lateral", "Hombros", "https://www.youtube.com/watch?v=3VcKaXpzqRo"},
	{"Pájaros", "Ejercicio para deltoides posterior", "Hombros", "https://www.youtube.com/watch?v=tTKY4Ry7R3E"},
	{"Curl de Bíceps con Barra", "Ejercicio básico para bíceps", "Brazos", "https://www.youtube.com/watch?v=ykJmrZ5v0Oo"},
	{"Press Francés", "Ejercicio de aislamiento para tríceps", "Brazos", "https://www.youtube.com/watch?v=d_KZxkY_0cM"},
	{"Curl Martillo", "Variación de curl para bíceps y braquial", "Brazos", "https://www.youtube.com/watch?v=zC3nLlEvin4"},
	{"Plancha", "Ejercicio isométrico para el core", "Core", "https://www.youtube.com/watch?v=ASdvN_XEl_c"},
	{"Abdominales", "Ejercicio clásico para abdominales", "Core", "https://www.youtube.com/watch?v=1fbU_MkV7NE"},
	{"Elevación de Piernas", "Ejercicio para abdomen inferior", "Core", "https://www.youtube.com/watch?v=JB2oyawG9KI"},
}

var routines = []seedRoutine{
	{
		name:        "Rutina Full Body Principiante",
		description: "Rutina de cuerpo completo ideal para principiantes, 3 días a la semana",
		creator:     "adrian",
		exercises: []seedRoutineExercise{
			{"Sentadilla", 1, 3, 8, 12},
			{"Press de Banca", 1, 3, 8, 12},
			{"Remo con Barra", 1, 3, 8, 12},
			{"Press Militar", 1, 3, 8, 12},
		},
	},
	{
		name:        "Push Pull Legs",
		description: "Rutina avanzada dividida en empuje, tirón y piernas",
		creator:     "maria",
		exercises: []seedRoutineExercise{
			{"Press de Banca", 1, 4, 6, 10},
			{"Press Militar", 1, 3, 8, 12},
			{"Fondos en Paralelas", 1, 3, 8, 12},
			{"Dominadas", 2, 4, 6, 10},
			{"Remo con Barra", 2, 3, 8, 12},
			{"Peso Muerto", 2, 3, 5, 8},
			{"Sentadilla", 3, 4, 6, 10},
			{"Prensa de Piernas", 3, 3, 10, 15},
			{"Curl Femoral", 3, 3, 10, 15},
		},
	},
	{
		name:        "Hipertrofia Avanzada",
		description: "Rutina de 5 días enfocada en hipertrofia muscular",
		creator:     "carlos",
		exercises: []seedRoutineExercise{
			{"Press de Banca", 1, 4, 8, 12},
			{"Aperturas con Mancuernas", 1, 3, 10, 15},
			{"Dominadas", 2, 4, 8, 12},
			{"Remo con Barra", 2, 4, 8, 12},
			{"Sentadilla", 3, 5, 6, 10},
			{"Prensa de Piernas", 3, 3, 12, 15},
		},
	},
}

var foods = []seedFood{
	{"Pechuga de Pollo", 165, 31, 0, 3.6},
	{"Huevos", 155, 13, 1.1, 11},
	{"Atún", 132, 28, 0, 1.3},
	{"Salmón", 208, 20, 0, 13},
	{"Arroz Blanco", 130, 2.7, 28, 0.3},
	{"Avena", 389, 17, 66, 7},
	{"Pasta", 131, 5, 25, 1.1},
	{"Pan Integral", 247, 13, 41, 3.4},
	{"Patata", 77, 2, 17, 0.1},
	{"Brócoli", 34, 2.8, 7, 0.4},
	{"Espinacas", 23, 2.9, 3.6, 0.4},
	{"Tomate", 18, 0.9, 3.9, 0.2},
	{"Plátano", 89, 1.1, 23, 0.3},
	{"Manzana", 52, 0.3, 14, 0.2},
	{"Aguacate", 160, 2, 9, 15},
	{"Almendras", 579, 21, 22, 50},
	{"Aceite de Oliva", 884, 0, 0, 100},
}

var diets = []seedDiet{
	{
		name:        "Dieta de Volumen 3000 kcal",
		description: "Plan alimenticio para ganancia de masa muscular",
		creator:     "adrian",
		foods: []seedDietFood{
			{"Avena", "Desayuno", 100},
			{"Plátano", "Desayuno", 150},
			{"Pechuga de Pollo", "Comida", 200},
			{"Arroz Blanco", "Comida", 150},
			{"Brócoli", "Comida", 100},
			{"Atún", "Merienda", 100},
			{"Pan Integral", "Merienda", 80},
			{"Salmón", "Cena", 150},
			{"Patata", "Cena", 200},
		},
	},
	{
		name:        "Dieta de Definición 2000 kcal",
		description: "Plan para pérdida de grasa manteniendo músculo",
		creator:     "maria",
		foods: []seedDietFood{
			{"Huevos", "Desayuno", 150},
			{"Pan Integral", "Desayuno", 50},
			{"Pechuga de Pollo", "Comida", 150},
			{"Arroz Blanco", "Comida", 80},
			{"Espinacas", "Comida", 100},
			{"Atún", "Merienda", 80},
			{"Manzana", "Merienda", 100},
			{"Pechuga de Pollo", "Cena", 120},
			{"Brócoli", "Cena", 150},
		},
	},
}

var seedUsernames = []string{"adrian", "maria", "carlos", "test"}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func intp(n int) *int { return &n }

func floatp(f float64) *float64 { return &f }

func main() {
	ctx := context.Background()
	config.ConnectFirestoreWithRetry()
	client := config.GetFirestore()
	if client == nil {
		fail("firestore not initialized (config.GetFirestore returned nil). Set GCP_PROJECT_ID / FIREBASE_CREDENTIALS_PATH.")
	}
	st := store.NewFirestoreStore(client)
	now := time.Now().UTC()

	userIds := make(map[string]string, len(seedUsernames))
	for _, username := range seedUsernames {
		key, err := st.Add(ctx, models.CollectionUsers, map[string]any{
			"username":           username,
			"email":              username + "@fittrack.dev",
			"profile_picture":    "https://api.dicebear.com/7.x/avataaars/svg?seed=" + username,
			"xp":                 int64(0),
			"daily_calorie_goal": int64(2000),
			"created_at":         now,
		})
		if err != nil {
			fail("seed user %s: %v", username, err)
		}
		userIds[username] = key
		fmt.Printf("created user %s (%s)\n", username, key)
	}

	exerciseIds := make(map[string]string, len(exercises))
	for _, e := range exercises {
		key, err := st.Add(ctx, models.CollectionExercises, map[string]any{
			"name":         e.name,
			"description":  e.description,
			"muscle_group": e.muscleGroup,
			"video_url":    e.videoUrl,
			"created_at":   now,
		})
		if err != nil {
			fail("seed exercise %s: %v", e.name, err)
		}
		exerciseIds[e.name] = key
	}
	fmt.Printf("created %d exercises\n", len(exerciseIds))

	for _, r := range routines {
		data, err := utils.EncodeDocument(models.Routine{
			Name:        r.name,
			Description: r.description,
			CreatorId:   userIds[r.creator],
			IsPublic:    true,
			CreatedAt:   now,
		})
		if err != nil {
			fail("encode routine %s: %v", r.name, err)
		}
		routineKey, err := st.Add(ctx, models.CollectionRoutines, data)
		if err != nil {
			fail("seed routine %s: %v", r.name, err)
		}
		writes := make([]store.Write, 0, len(r.exercises))
		for idx, re := range r.exercises {
			exerciseKey, ok := exerciseIds[re.exercise]
			if !ok {
				fail("routine %s references unknown exercise %s", r.name, re.exercise)
			}
			link, err := utils.EncodeDocument(models.RoutineExercise{
				RoutineId:     routineKey,
				ExerciseId:    exerciseKey,
				DayOfWeek:     intp(re.day),
				OrderIndex:    intp(idx),
				TargetSets:    intp(re.sets),
				TargetRepsMin: intp(re.repsMin),
				TargetRepsMax: intp(re.repsMax),
			})
			if err != nil {
				fail("encode routine exercise %s/%s: %v", r.name, re.exercise, err)
			}
			writes = append(writes, store.Write{
				Kind:       store.WriteSet,
				Collection: models.CollectionRoutineExercises,
				Data:       link,
			})
		}
		if err := st.BatchWrite(ctx, writes); err != nil {
			fail("seed exercises of %s: %v", r.name, err)
		}
		fmt.Printf("created routine %s with %d exercises\n", r.name, len(r.exercises))
	}

	foodIds := make(map[string]string, len(foods))
	for _, f := range foods {
		key, err := st.Add(ctx, models.CollectionFoods, map[string]any{
			"name":       f.name,
			"calories":   f.calories,
			"protein":    f.protein,
			"carbs":      f.carbs,
			"fat":        f.fat,
			"quantity":   float64(100),
			"created_at": now,
		})
		if err != nil {
			fail("seed food %s: %v", f.name, err)
		}
		foodIds[f.name] = key
	}
	fmt.Printf("created %d foods\n", len(foodIds))

	for _, d := range diets {
		data, err := utils.EncodeDocument(models.DietPlan{
			Name:        d.name,
			Description: d.description,
			CreatorId:   userIds[d.creator],
			IsPublic:    true,
			CreatedAt:   now,
		})
		if err != nil {
			fail("encode diet %s: %v", d.name, err)
		}
		dietKey, err := st.Add(ctx, models.CollectionDiets, data)
		if err != nil {
			fail("seed diet %s: %v", d.name, err)
		}
		writes := make([]store.Write, 0, len(d.foods))
		for idx, df := range d.foods {
			foodKey, ok := foodIds[df.food]
			if !ok {
				fail("diet %s references unknown food %s", d.name, df.food)
			}
			link, err := utils.EncodeDocument(models.DietFood{
				DietId:     dietKey,
				FoodId:     foodKey,
				MealName:   df.meal,
				OrderIndex: intp(idx),
				QuantityG:  floatp(df.grams),
			})
			if err != nil {
				fail("encode diet food %s/%s: %v", d.name, df.food, err)
			}
			writes = append(writes, store.Write{
				Kind:       store.WriteSet,
				Collection: models.CollectionDietFoods,
				Data:       link,
			})
		}
		if err := st.BatchWrite(ctx, writes); err != nil {
			fail("seed foods of %s: %v", d.name, err)
		}
		fmt.Printf("created diet %s with %d foods\n", d.name, len(d.foods))
	}

	fmt.Println("seeding completed")
}
