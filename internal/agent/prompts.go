package agent

import (
	"fmt"
	"strings"
)

const routerPromptTemplate = `You route messages sent to a hospital appointment assistant.
Decide whether the message is a general medical question or a request about hospitals, doctors, availability or appointments, and answer with a JSON object.

Departments: %s

Message: %s

Rules:
- Reply with exactly two keys: "action" and "parameters".
- "action" is "rag_query" for general medical questions (diseases, symptoms, treatments) and "db_query" for hospitals, doctors, availability or appointments.
- For "rag_query", parameters holds "query" with the original message.
- For "db_query", parameters holds "tool": one of "get_hospitals", "get_doctors", "get_doctor_availability", "book_appointment".
- For "get_doctors" about a condition, add "condition" and a "department_name" taken from the departments above, or null when none fits.
- For "get_doctors" naming a department directly, add "department_name" only.
- For "get_doctor_availability", add "params" with "doctor_username" and, when a date is given, "date" as YYYY-MM-DD.
- For "book_appointment", add "doctor_username", "appointment_date" (YYYY-MM-DD), "start_time" and "end_time" (HH:MM, 24 hour). Use null for anything the message does not state.
- Output only the JSON object. No markdown, no commentary.

Examples:
"What causes migraines?" -> {"action": "rag_query", "parameters": {"query": "What causes migraines?"}}
"Which hospitals are there?" -> {"action": "db_query", "parameters": {"tool": "get_hospitals"}}
"Who can treat my eczema?" -> {"action": "db_query", "parameters": {"tool": "get_doctors", "condition": "eczema", "department_name": "Dermatology"}}
"Show me the cardiology doctors" -> {"action": "db_query", "parameters": {"tool": "get_doctors", "department_name": "Cardiology"}}
"When is drsmith free on 2025-05-06?" -> {"action": "db_query", "parameters": {"tool": "get_doctor_availability", "params": {"doctor_username": "drsmith", "date": "2025-05-06"}}}
"Book derma1 on 2025-05-05 from 09:00 to 09:30" -> {"action": "db_query", "parameters": {"tool": "book_appointment", "doctor_username": "derma1", "appointment_date": "2025-05-05", "start_time": "09:00", "end_time": "09:30"}}
"Book me for 10:00 - 10:30" -> {"action": "db_query", "parameters": {"tool": "book_appointment", "doctor_username": null, "appointment_date": null, "start_time": "10:00", "end_time": "10:30"}}

JSON:`

const departmentPromptTemplate = `You match a patient's condition to a hospital department.

Departments: %s

Condition: %s

Rules:
- Pick the single department from the list above that best treats the condition.
- Reply with a JSON object with one key, "department_name", spelled exactly as in the list.
- Use null when no listed department fits.
- Output only the JSON object. No markdown, no commentary.

Examples:
"acne" -> {"department_name": "Dermatology"}
"tumour follow-up" -> {"department_name": "Oncology"}
"feeling tired" -> {"department_name": null}

JSON:`

func routerPrompt(departments []string, query string) string {
	return fmt.Sprintf(routerPromptTemplate, strings.Join(departments, ", "), query)
}

func departmentPrompt(departments []string, condition string) string {
	return fmt.Sprintf(departmentPromptTemplate, strings.Join(departments, ", "), condition)
}
