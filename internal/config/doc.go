// Package config loads the chatcontext configuration.
//
// Values come from three layers, later ones winning:
//
//  1. Default(), which runs fully offline (local embeddings, mock generation)
//  2. an optional YAML file
//  3. environment variables
//
// Recognized environment variables:
//
//	ENV, CHATCONTEXT_ENV                 development | production
//	CHATCONTEXT_TIMESTAMP_REGEX          timestamp regex with one capture group
//	CHATCONTEXT_DATE_FORMAT              strftime format for the captured date
//	CHATCONTEXT_GRANULARITY              day | week | month
//	CHATCONTEXT_OVERLAP_DAYS             interior window overlap in days
//	CHATCONTEXT_EMBEDDING_PROVIDER       openai | local
//	EMBEDDING_MODEL, EMBEDDING_DIM       embedding model and vector size
//	OPENAI_API_KEY, OPENAI_BASE_URL      credentials for OpenAI-compatible APIs
//	CHATCONTEXT_GENERATION_PROVIDER      openai | mock
//	ANSWERS_LLM                          generation model
//	CHATCONTEXT_COLLECTION, CHATCONTEXT_K
//	CHATCONTEXT_FILES                    comma or path-list separated chat logs
//	CHATCONTEXT_LOG_LEVEL, CHATCONTEXT_LOG_FORMAT
//	DEBUG                                "true" forces debug logging
//
// Validate reports every invalid option in one joined error.
package config
